// Package assets loads the stylesheet and script resources that adapters
// declare in their bundles.
//
// Loading is idempotent per URL: the loader inserts at most one <link> or
// <script> tag per URL into the document head and fetches each URL at most
// once. It never fails the caller. A script load signal settles when the
// fetch finishes, whether it succeeded or not, so adapters must not assume a
// settled script actually loaded.
package assets
