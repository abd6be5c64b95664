// Package narrative routes scroll-driven story step notifications to live
// visualization instances.
//
// A Source delivers StepNotification values. The Bridge subscribes to one
// source, reads the active step element's data-update JSON and calls the
// Update capability of every addressed instance found in the instance store.
//
//	<div class="story-step" data-step="1"
//	     data-update='{"city-map": {"lat": 48.858, "lng": 2.295, "zoom": 14}}'>
//
// Malformed JSON drops the whole notification. Unknown ids, and instances
// whose adapter cannot update, are skipped without a diagnostic.
package narrative
