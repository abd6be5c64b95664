package integrationtests

import (
	"github.com/vk/loom/internal/app"
	"github.com/vk/loom/internal/testutil"
	"github.com/vk/loom/internal/viz"
)

const boxManifest = `
adapter "box" {
  selector = ".box"
  options  = { label = "default" }
  detect {
    selectors = [".box"]
  }
}
`

func boxModule(h *testutil.RecordingHandler) viz.Module {
	return &testutil.SimpleModule{Name: "box", Handler: h}
}

func skipCatalog(cfg *app.Config) { cfg.SkipCatalog = true }
