package main

import (
	"github.com/spf13/cobra"

	"github.com/crtc-jlab/mlcli/dataset"
	"github.com/crtc-jlab/mlcli/model"
)

func testCommand() *cobra.Command {
	var (
		testingDir  string
		numFeatures int
		modelPath   string
		modelType   string
		batchSize   int
	)

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Load a serialized model and evaluate it on a testing set",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkDim(numFeatures); err != nil {
				return err
			}
			kind, err := modelKind(modelType)
			if err != nil {
				return err
			}
			mapping, err := classMapping()
			if err != nil {
				return err
			}

			logger.Infof("reading input data")
			testingFiles, err := listDataFiles(testingDir)
			if err != nil {
				return err
			}
			testing, err := dataset.ReadFiles(testingFiles, numFeatures)
			if err != nil {
				return err
			}
			logger.Infof("testing set: %s", testing)

			segmented, err := dataset.Segment(testing, mapping)
			if err != nil {
				return err
			}

			m, err := model.New(kind, numFeatures, mapping, backendConfig(kind, numFeatures, testing.Len()))
			if err != nil {
				return err
			}
			if err := m.Load(modelPath); err != nil {
				return err
			}

			logger.Infof("testing %s model", kind)
			report, err := m.Test(testing, batchSize)
			if err != nil {
				return err
			}

			printTestingReport(report, segmented)
			return nil
		},
	}

	cmd.Flags().StringVarP(&testingDir, "testing-dir", "e", "", "directory containing the testing data")
	cmd.Flags().IntVarP(&numFeatures, "num-features", "f", 0, "feature dimensionality (6, 36, or 4032)")
	cmd.Flags().StringVarP(&modelPath, "model", "m", "", "file from which to load the model")
	cmd.Flags().StringVar(&modelType, "model-type", "", "type of the model to load (et, mlp, cnn)")
	cmd.Flags().IntVar(&batchSize, "batch-size", 16, "evaluation batch size")

	markRequired(cmd, "testing-dir", "num-features", "model", "model-type")

	return cmd
}
