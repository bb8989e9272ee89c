package dataset

import (
	"context"
	"fmt"
	"os"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

// NpySource reads a 2-D float64 feature matrix and a 1-D label vector from
// NumPy .npy files.
type NpySource struct {
	FeaturesPath string
	LabelsPath   string
}

func NewNpySource(featuresPath, labelsPath string) *NpySource {
	return &NpySource{FeaturesPath: featuresPath, LabelsPath: labelsPath}
}

func (s *NpySource) Name() string { return "npy" }

func (s *NpySource) Load(ctx context.Context) (*Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	x := &mat.Dense{}
	if err := readNpy(s.FeaturesPath, x); err != nil {
		return nil, fmt.Errorf("read features: %w", err)
	}

	var y []float64
	if err := readNpy(s.LabelsPath, &y); err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}

	d := &Dataset{X: x, Y: y}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

func readNpy(path string, ptr interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r, err := npyio.NewReader(f)
	if err != nil {
		return err
	}
	return r.Read(ptr)
}
