package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/crtc-jlab/mlcli/checkpoints"
	"github.com/crtc-jlab/mlcli/dataset"
	"github.com/crtc-jlab/mlcli/model"
)

func predictCommand() *cobra.Command {
	var (
		predictionDir string
		outputFile    string
		modelPath     string
		modelType     string
		batchSize     int
	)

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Load a serialized model and write predictions for a data directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := modelKind(modelType)
			if err != nil {
				return err
			}
			mapping, err := classMapping()
			if err != nil {
				return err
			}

			// The prediction files carry no dimensionality of their own;
			// it comes from the checkpoint envelope.
			cp, err := checkpoints.Open(modelPath, string(kind))
			if err != nil {
				return err
			}

			logger.Infof("reading input data")
			predictionFiles, err := listDataFiles(predictionDir)
			if err != nil {
				return err
			}
			prediction, err := dataset.ReadFiles(predictionFiles, cp.Dim)
			if err != nil {
				return err
			}
			logger.Infof("prediction set: %s", prediction)

			m, err := model.New(kind, cp.Dim, mapping, backendConfig(kind, cp.Dim, prediction.Len()))
			if err != nil {
				return err
			}
			if err := m.Load(modelPath); err != nil {
				return err
			}

			logger.Infof("predicting with %s model", kind)
			labels, err := m.Predict(prediction, batchSize)
			if err != nil {
				return err
			}

			if err := writePredictions(outputFile, labels); err != nil {
				return err
			}
			logger.Infof("wrote %d predictions to %s", len(labels), outputFile)
			return nil
		},
	}

	cmd.Flags().StringVarP(&predictionDir, "prediction-dir", "p", "", "directory containing the prediction data")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "file in which to save the predictions")
	cmd.Flags().StringVarP(&modelPath, "model", "m", "", "file from which to load the model")
	cmd.Flags().StringVar(&modelType, "model-type", "", "type of the model to load (et, mlp, cnn)")
	cmd.Flags().IntVar(&batchSize, "batch-size", 32, "prediction batch size")

	markRequired(cmd, "prediction-dir", "output", "model", "model-type")

	return cmd
}

// writePredictions writes one raw label per line, in input order.
func writePredictions(path string, labels []int) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create prediction output %s", path)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, label := range labels {
		fmt.Fprintln(w, label)
	}
	if err := w.Flush(); err != nil {
		return errors.Wrapf(err, "failed to write prediction output %s", path)
	}
	return nil
}
