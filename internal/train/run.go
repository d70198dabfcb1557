package train

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Run is one training run's identity on disk: a uuid-named directory
// that collects its checkpoints, so repeated runs never overwrite
// each other.
type Run struct {
	ID        string
	Dir       string
	StartedAt time.Time
}

// NewRun creates the run directory under baseDir.
func NewRun(baseDir string) (*Run, error) {
	id := uuid.NewString()
	dir := filepath.Join(baseDir, "run-"+id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("train: create run dir %s: %w", dir, err)
	}
	return &Run{ID: id, Dir: dir, StartedAt: time.Now().UTC()}, nil
}

// CheckpointPath returns the checkpoint file path for an epoch.
func (r *Run) CheckpointPath(epoch int) string {
	return filepath.Join(r.Dir, fmt.Sprintf("epoch-%03d.lumo", epoch))
}
