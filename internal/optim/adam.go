package optim

import (
	"fmt"
	"math"

	"github.com/lumo-ml/lumo/internal/nn"
	"github.com/lumo-ml/lumo/internal/tensor"
)

// Adam is adaptive moment estimation with bias correction:
//
//	m = b1*m + (1-b1)*g
//	v = b2*v + (1-b2)*g^2
//	p = p - lr * m_hat / (sqrt(v_hat) + eps)
type Adam[B tensor.Backend] struct {
	params  []*nn.Parameter[B]
	lr      float32
	betas   [2]float32
	epsilon float32
	step    int64

	m map[*nn.Parameter[B]][]float32
	v map[*nn.Parameter[B]][]float32
}

// AdamConfig configures Adam.
type AdamConfig struct {
	LR      float32    // default 0.001
	Betas   [2]float32 // default (0.9, 0.999)
	Epsilon float32    // default 1e-8
}

// NewAdam creates an Adam optimizer over the given parameters.
func NewAdam[B tensor.Backend](params []*nn.Parameter[B], config AdamConfig) *Adam[B] {
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Betas == [2]float32{} {
		config.Betas = [2]float32{0.9, 0.999}
	}
	if config.Epsilon == 0 {
		config.Epsilon = 1e-8
	}
	return &Adam[B]{
		params:  params,
		lr:      config.LR,
		betas:   config.Betas,
		epsilon: config.Epsilon,
		m:       make(map[*nn.Parameter[B]][]float32),
		v:       make(map[*nn.Parameter[B]][]float32),
	}
}

// Step applies one bias-corrected update in place.
func (a *Adam[B]) Step(grads map[*tensor.RawTensor]*tensor.RawTensor) {
	a.step++
	b1, b2 := float64(a.betas[0]), float64(a.betas[1])
	c1 := 1 - math.Pow(b1, float64(a.step))
	c2 := 1 - math.Pow(b2, float64(a.step))

	for _, param := range a.params {
		grad := gradFor(param, grads)
		if grad == nil {
			continue
		}
		data := param.Tensor().Data()

		m, ok := a.m[param]
		if !ok {
			m = make([]float32, len(data))
			a.m[param] = m
		}
		v, ok := a.v[param]
		if !ok {
			v = make([]float32, len(data))
			a.v[param] = v
		}

		for i, g := range grad {
			m[i] = a.betas[0]*m[i] + (1-a.betas[0])*g
			v[i] = a.betas[1]*v[i] + (1-a.betas[1])*g*g
			mHat := float64(m[i]) / c1
			vHat := float64(v[i]) / c2
			data[i] -= float32(float64(a.lr) * mHat / (math.Sqrt(vHat) + float64(a.epsilon)))
		}
	}
}

// ZeroGrad clears per-parameter gradients.
func (a *Adam[B]) ZeroGrad() {
	for _, p := range a.params {
		p.ZeroGrad()
	}
}

// GetLR returns the learning rate.
func (a *Adam[B]) GetLR() float32 { return a.lr }

// SetLR updates the learning rate (for scheduling).
func (a *Adam[B]) SetLR(lr float32) { a.lr = lr }

// Name identifies the optimizer type in checkpoints.
func (a *Adam[B]) Name() string { return "Adam" }

// StateDict exports first and second moments plus the step counter
// encoded as a single-element tensor under "step".
func (a *Adam[B]) StateDict() map[string]*tensor.RawTensor {
	out := make(map[string]*tensor.RawTensor)

	stepRaw, err := tensor.NewRaw(tensor.Shape{1}, tensor.Int32, tensor.CPU)
	if err != nil {
		panic(err)
	}
	stepRaw.AsInt32()[0] = int32(a.step)
	out["step"] = stepRaw

	export := func(prefix string, buffers map[*nn.Parameter[B]][]float32) {
		for i, param := range a.params {
			buf, ok := buffers[param]
			if !ok {
				continue
			}
			raw, err := tensor.NewRaw(param.Tensor().Shape(), tensor.Float32, tensor.CPU)
			if err != nil {
				panic(err)
			}
			copy(raw.AsFloat32(), buf)
			out[fmt.Sprintf("%s.%d", prefix, i)] = raw
		}
	}
	export("m", a.m)
	export("v", a.v)
	return out
}

// LoadStateDict restores moments and the step counter.
func (a *Adam[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	if stepRaw, ok := stateDict["step"]; ok {
		a.step = int64(stepRaw.AsInt32()[0])
	}

	restore := func(prefix string, buffers map[*nn.Parameter[B]][]float32) error {
		for i, param := range a.params {
			raw, ok := stateDict[fmt.Sprintf("%s.%d", prefix, i)]
			if !ok {
				continue
			}
			if !raw.Shape().Equal(param.Tensor().Shape()) {
				return fmt.Errorf("optim: %s.%d shape mismatch: have %v, want %v",
					prefix, i, raw.Shape(), param.Tensor().Shape())
			}
			buf := make([]float32, raw.NumElements())
			copy(buf, raw.AsFloat32())
			buffers[param] = buf
		}
		return nil
	}

	a.m = make(map[*nn.Parameter[B]][]float32)
	a.v = make(map[*nn.Parameter[B]][]float32)
	if err := restore("m", a.m); err != nil {
		return err
	}
	return restore("v", a.v)
}
