package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
)

// NetworkConfig controls training of a single classifier.
type NetworkConfig struct {
	Hidden       []int
	LearningRate float64
	Epochs       int
	BatchSize    int
	Seed         int64
}

func DefaultNetworkConfig() NetworkConfig {
	return NetworkConfig{
		Hidden:       []int{32, 12},
		LearningRate: 0.001,
		Epochs:       100,
		BatchSize:    4,
		Seed:         42,
	}
}

// Network is a small feed-forward softmax classifier trained with Adam
// on categorical cross-entropy. The corpus it fits is a few dozen
// curated cases, so it deliberately overfits: it acts as a smoothed
// lookup over those cases, not a generalizing model.
type Network struct {
	layers  []*denseLayer
	trained bool
}

type denseLayer struct {
	In      int         `json:"in"`
	Out     int         `json:"out"`
	Weights [][]float64 `json:"weights"` // [out][in]
	Bias    []float64   `json:"bias"`
	Final   bool        `json:"final"` // softmax output layer

	// Adam state, not persisted.
	mW, vW [][]float64
	mB, vB []float64
}

const (
	adamBeta1   = 0.9
	adamBeta2   = 0.999
	adamEpsilon = 1e-8
)

// NewNetwork builds an untrained network with the given input width and
// output class count.
func NewNetwork(inputs, classes int, config NetworkConfig, rng *rand.Rand) (*Network, error) {
	if inputs <= 0 || classes <= 0 {
		return nil, errors.New("inputs and classes must be positive")
	}
	sizes := append([]int{inputs}, config.Hidden...)
	sizes = append(sizes, classes)

	net := &Network{}
	for i := 1; i < len(sizes); i++ {
		layer := newDenseLayer(sizes[i-1], sizes[i], rng)
		layer.Final = i == len(sizes)-1
		net.layers = append(net.layers, layer)
	}
	return net, nil
}

func newDenseLayer(in, out int, rng *rand.Rand) *denseLayer {
	layer := &denseLayer{In: in, Out: out}
	// He initialization, suitable for the ReLU hidden layers.
	scale := math.Sqrt(2.0 / float64(in))
	layer.Weights = make([][]float64, out)
	layer.mW = make([][]float64, out)
	layer.vW = make([][]float64, out)
	for o := 0; o < out; o++ {
		layer.Weights[o] = make([]float64, in)
		layer.mW[o] = make([]float64, in)
		layer.vW[o] = make([]float64, in)
		for i := 0; i < in; i++ {
			layer.Weights[o][i] = rng.NormFloat64() * scale
		}
	}
	layer.Bias = make([]float64, out)
	layer.mB = make([]float64, out)
	layer.vB = make([]float64, out)
	return layer
}

// Train fits the network against the full corpus. inputs[i] must have
// the network's input width and labels[i] must be a one-hot vector over
// the output classes.
func (n *Network) Train(inputs [][]float64, labels [][]float64, config NetworkConfig, rng *rand.Rand) error {
	if len(n.layers) == 0 {
		return errors.New("network not constructed")
	}
	if len(inputs) == 0 || len(labels) == 0 {
		return errors.New("inputs or labels empty")
	}
	if len(inputs) != len(labels) {
		return errors.New("inputs and labels size mismatch")
	}
	inWidth := n.layers[0].In
	outWidth := n.layers[len(n.layers)-1].Out
	for i := range inputs {
		if len(inputs[i]) != inWidth {
			return fmt.Errorf("input %d has width %d, want %d", i, len(inputs[i]), inWidth)
		}
		if len(labels[i]) != outWidth {
			return fmt.Errorf("label %d has width %d, want %d", i, len(labels[i]), outWidth)
		}
	}

	epochs := config.Epochs
	if epochs <= 0 {
		epochs = 100
	}
	batchSize := config.BatchSize
	if batchSize <= 0 {
		batchSize = 4
	}
	lr := config.LearningRate
	if lr <= 0 {
		lr = 0.001
	}

	step := 0
	indices := make([]int, len(inputs))
	for i := range indices {
		indices[i] = i
	}

	for epoch := 0; epoch < epochs; epoch++ {
		rng.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})

		for start := 0; start < len(indices); start += batchSize {
			end := start + batchSize
			if end > len(indices) {
				end = len(indices)
			}

			grads := n.zeroGradients()
			batchLoss := 0.0
			for _, idx := range indices[start:end] {
				loss := n.accumulate(inputs[idx], labels[idx], grads)
				batchLoss += loss
			}
			if math.IsNaN(batchLoss) || math.IsInf(batchLoss, 0) {
				return errors.New("training diverged: non-finite loss")
			}

			step++
			n.applyAdam(grads, len(indices[start:end]), lr, step)
		}
	}

	n.trained = true
	return nil
}

// Predict runs a forward pass and returns the softmax distribution.
func (n *Network) Predict(features []float64) ([]float64, error) {
	if !n.trained {
		return nil, errors.New("model not trained")
	}
	if len(features) != n.layers[0].In {
		return nil, fmt.Errorf("feature width %d, want %d", len(features), n.layers[0].In)
	}
	activation := features
	for _, layer := range n.layers {
		activation = layer.forward(activation)
	}
	return activation, nil
}

func (l *denseLayer) forward(input []float64) []float64 {
	output := make([]float64, l.Out)
	for o := 0; o < l.Out; o++ {
		sum := l.Bias[o]
		row := l.Weights[o]
		for i, v := range input {
			sum += row[i] * v
		}
		output[o] = sum
	}
	if l.Final {
		return softmax(output)
	}
	for o := range output {
		if output[o] < 0 {
			output[o] = 0
		}
	}
	return output
}

func softmax(logits []float64) []float64 {
	max := logits[0]
	for _, v := range logits[1:] {
		if v > max {
			max = v
		}
	}
	sum := 0.0
	out := make([]float64, len(logits))
	for i, v := range logits {
		out[i] = math.Exp(v - max)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

type layerGradients struct {
	weights [][]float64
	bias    []float64
}

func (n *Network) zeroGradients() []layerGradients {
	grads := make([]layerGradients, len(n.layers))
	for li, layer := range n.layers {
		grads[li].weights = make([][]float64, layer.Out)
		for o := 0; o < layer.Out; o++ {
			grads[li].weights[o] = make([]float64, layer.In)
		}
		grads[li].bias = make([]float64, layer.Out)
	}
	return grads
}

// accumulate runs one forward/backward pass and adds the example's
// gradients into grads, returning its cross-entropy loss.
func (n *Network) accumulate(input, label []float64, grads []layerGradients) float64 {
	// Forward, keeping every activation for backprop.
	activations := make([][]float64, len(n.layers)+1)
	activations[0] = input
	for li, layer := range n.layers {
		activations[li+1] = layer.forward(activations[li])
	}

	probs := activations[len(activations)-1]
	loss := 0.0
	for c, y := range label {
		if y > 0 {
			loss -= y * math.Log(probs[c]+1e-12)
		}
	}

	// Softmax + cross-entropy collapses to (p - y) at the output.
	delta := make([]float64, len(probs))
	for c := range probs {
		delta[c] = probs[c] - label[c]
	}

	for li := len(n.layers) - 1; li >= 0; li-- {
		layer := n.layers[li]
		prev := activations[li]

		for o := 0; o < layer.Out; o++ {
			grads[li].bias[o] += delta[o]
			for i := 0; i < layer.In; i++ {
				grads[li].weights[o][i] += delta[o] * prev[i]
			}
		}

		if li == 0 {
			break
		}
		next := make([]float64, layer.In)
		for i := 0; i < layer.In; i++ {
			sum := 0.0
			for o := 0; o < layer.Out; o++ {
				sum += layer.Weights[o][i] * delta[o]
			}
			// ReLU derivative on the previous layer's output.
			if prev[i] <= 0 {
				sum = 0
			}
			next[i] = sum
		}
		delta = next
	}

	return loss
}

func (n *Network) applyAdam(grads []layerGradients, batch int, lr float64, step int) {
	scale := 1.0 / float64(batch)
	corr1 := 1 - math.Pow(adamBeta1, float64(step))
	corr2 := 1 - math.Pow(adamBeta2, float64(step))

	for li, layer := range n.layers {
		for o := 0; o < layer.Out; o++ {
			for i := 0; i < layer.In; i++ {
				g := grads[li].weights[o][i] * scale
				layer.mW[o][i] = adamBeta1*layer.mW[o][i] + (1-adamBeta1)*g
				layer.vW[o][i] = adamBeta2*layer.vW[o][i] + (1-adamBeta2)*g*g
				mHat := layer.mW[o][i] / corr1
				vHat := layer.vW[o][i] / corr2
				layer.Weights[o][i] -= lr * mHat / (math.Sqrt(vHat) + adamEpsilon)
			}
			g := grads[li].bias[o] * scale
			layer.mB[o] = adamBeta1*layer.mB[o] + (1-adamBeta1)*g
			layer.vB[o] = adamBeta2*layer.vB[o] + (1-adamBeta2)*g*g
			mHat := layer.mB[o] / corr1
			vHat := layer.vB[o] / corr2
			layer.Bias[o] -= lr * mHat / (math.Sqrt(vHat) + adamEpsilon)
		}
	}
}

// Save writes the trained weights as JSON.
func (n *Network) Save(path string) error {
	if !n.trained {
		return errors.New("model not trained")
	}
	payload, err := json.Marshal(n.layers)
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

// Load reads weights written by Save and marks the network trained.
func (n *Network) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var layers []*denseLayer
	if err := json.Unmarshal(payload, &layers); err != nil {
		return err
	}
	if len(layers) == 0 {
		return errors.New("empty model file")
	}
	for _, layer := range layers {
		if layer.In <= 0 || layer.Out <= 0 || len(layer.Weights) != layer.Out || len(layer.Bias) != layer.Out {
			return errors.New("malformed model file")
		}
		layer.mW = make([][]float64, layer.Out)
		layer.vW = make([][]float64, layer.Out)
		for o := 0; o < layer.Out; o++ {
			if len(layer.Weights[o]) != layer.In {
				return errors.New("malformed model file")
			}
			layer.mW[o] = make([]float64, layer.In)
			layer.vW[o] = make([]float64, layer.In)
		}
		layer.mB = make([]float64, layer.Out)
		layer.vB = make([]float64, layer.Out)
	}
	n.layers = layers
	n.trained = true
	return nil
}
