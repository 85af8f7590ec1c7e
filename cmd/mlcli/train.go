package main

import (
	"github.com/spf13/cobra"

	"github.com/crtc-jlab/mlcli/dataset"
	"github.com/crtc-jlab/mlcli/model"
)

func trainCommand() *cobra.Command {
	var (
		trainingDir  string
		testingDir   string
		numFeatures  int
		outModel     string
		modelType    string
		epochs       int
		batchSize    int
		testingBatch int
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a model, evaluate it on the testing set, and serialize it",
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
			trainingFiles, err := listDataFiles(trainingDir)
			if err != nil {
				return err
			}
			testingFiles, err := listDataFiles(testingDir)
			if err != nil {
				return err
			}

			training, err := dataset.ReadFiles(trainingFiles, numFeatures)
			if err != nil {
				return err
			}
			testing, err := dataset.ReadFiles(testingFiles, numFeatures)
			if err != nil {
				return err
			}
			logger.Infof("training set: %s, testing set: %s", training, testing)

			segmented, err := dataset.Segment(testing, mapping)
			if err != nil {
				return err
			}

			m, err := model.New(kind, numFeatures, mapping, backendConfig(kind, numFeatures, training.Len()))
			if err != nil {
				return err
			}
			if err := m.Build(); err != nil {
				return err
			}

			logger.Infof("training %s model", kind)
			trainingReport, err := m.Train(training, epochs, batchSize)
			if err != nil {
				return err
			}

			logger.Infof("testing %s model", kind)
			testingReport, err := m.Test(testing, testingBatch)
			if err != nil {
				return err
			}

			printTrainingReport(trainingReport)
			printTestingReport(testingReport, segmented)

			if err := m.Save(outModel); err != nil {
				return err
			}
			logger.Infof("model saved to %s", outModel)
			return nil
		},
	}

	cmd.Flags().StringVarP(&trainingDir, "training-dir", "t", "", "directory containing the training data")
	cmd.Flags().StringVarP(&testingDir, "testing-dir", "e", "", "directory containing the testing data")
	cmd.Flags().IntVarP(&numFeatures, "num-features", "f", 0, "feature dimensionality (6, 36, or 4032)")
	cmd.Flags().StringVarP(&outModel, "out-model", "m", "", "file in which to save the model")
	cmd.Flags().StringVar(&modelType, "model-type", "", "type of the model to train (et, mlp, cnn)")
	cmd.Flags().IntVar(&epochs, "epochs", 5, "number of training epochs")
	cmd.Flags().IntVar(&batchSize, "batch-size", 16, "training batch size")
	cmd.Flags().IntVar(&testingBatch, "testing-batch-size", 16, "evaluation batch size")

	markRequired(cmd, "training-dir", "testing-dir", "num-features", "out-model", "model-type")

	return cmd
}
