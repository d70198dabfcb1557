package train

import (
	"github.com/lumo-ml/lumo/internal/data"
	"github.com/lumo-ml/lumo/internal/tensor"
)

// splitBatch slices a batch along dim 0 into n shards for
// data-parallel execution. Sizes differ by at most one; shards are
// fresh tensors so concurrent TrainingStep calls never share input
// memory. Callers guarantee 1 < n <= batch.Size.
func splitBatch[B tensor.Backend](batch data.Batch[B], n int) []data.Batch[B] {
	size := batch.Size
	base := size / n
	extra := size % n

	sampleShape := batch.Inputs.Shape()[1:]
	sampleLen := sampleShape.NumElements()
	inputData := batch.Inputs.Data()
	targetData := batch.Targets.Data()
	backend := batch.Inputs.Backend()

	shards := make([]data.Batch[B], 0, n)
	row := 0
	for i := 0; i < n; i++ {
		rows := base
		if i < extra {
			rows++
		}
		shardShape := append(tensor.Shape{rows}, sampleShape...)
		inputs := tensor.Zeros[float32](shardShape, backend)
		targets := tensor.Zeros[int32](tensor.Shape{rows}, backend)
		copy(inputs.Data(), inputData[row*sampleLen:(row+rows)*sampleLen])
		copy(targets.Data(), targetData[row:row+rows])
		shards = append(shards, data.Batch[B]{Inputs: inputs, Targets: targets, Size: rows})
		row += rows
	}
	return shards
}
