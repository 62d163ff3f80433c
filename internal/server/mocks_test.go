package server

import (
	"context"
	"os"
	"sync"

	"github.com/kiesman99/mapframe/internal/engine"
)

const testStyle = `<?xml version="1.0" encoding="utf-8"?>
<Map srs="+proj=longlat +datum=WGS84" background-color="#f2efe9">
  <Layer name="landcover"/>
  <Layer name="contours" status="off"/>
  <Layer name="labels"/>
  <Layer name="grid" status="off"/>
</Map>
`

// fakeEngine records render jobs and writes a fixed payload
type fakeEngine struct {
	mu        sync.Mutex
	jobs      []engine.Job
	renderErr error
	vector    bool
}

func (e *fakeEngine) Load(ctx context.Context, stylePath string) (*engine.Map, error) {
	return engine.ParseMap([]byte(testStyle))
}

func (e *fakeEngine) VectorSurface() bool {
	return e.vector
}

func (e *fakeEngine) Render(ctx context.Context, m *engine.Map, job engine.Job) error {
	e.mu.Lock()
	e.jobs = append(e.jobs, job)
	e.mu.Unlock()

	if e.renderErr != nil {
		return &engine.RenderError{Backend: "fake", Err: e.renderErr}
	}
	return os.WriteFile(job.Output, []byte("fake image"), 0644)
}

func (e *fakeEngine) lastJob() engine.Job {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.jobs[len(e.jobs)-1]
}
