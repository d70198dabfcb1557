package train

import (
	"sync"

	"github.com/lumo-ml/lumo/internal/data"
	"github.com/lumo-ml/lumo/internal/tensor"
)

// LoadersOnce wraps a loader constructor so the underlying work runs
// a single time and every later call returns the same loader (or the
// same error). Use it inside loader hooks whose construction is
// expensive — reading files, batch pre-assembly — since the Trainer
// may call a hook more than once across Fit and Test.
//
//	func (m *LitModel) TrainLoader() (*data.Loader[B], error) {
//	    return m.trainOnce()
//	}
//
// with m.trainOnce = train.LoadersOnce(buildTrainLoader) set at
// construction.
func LoadersOnce[B tensor.Backend](fn func() (*data.Loader[B], error)) func() (*data.Loader[B], error) {
	var (
		once   sync.Once
		loader *data.Loader[B]
		err    error
	)
	return func() (*data.Loader[B], error) {
		once.Do(func() {
			loader, err = fn()
		})
		return loader, err
	}
}
