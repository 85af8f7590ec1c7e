package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/crtc-jlab/mlcli/dataset"
	"github.com/crtc-jlab/mlcli/metrics"
	"github.com/crtc-jlab/mlcli/model"
	"github.com/crtc-jlab/mlcli/physics"
)

var (
	infoColor      = color.New(color.FgBlue)
	breakdownColor = color.New(color.FgYellow)
)

func printTrainingReport(report *model.TrainingReport) {
	fmt.Println("\nTraining Report")
	fmt.Println("================================")
	infoColor.Printf("Training accuracy: %.4f\n", report.Accuracy)
	infoColor.Printf("Training time: %.2fs\n", report.TrainingTime.Seconds())
}

func printTestingReport(report *model.TestingReport, segmented dataset.Segmented) {
	result := report.Metrics

	fmt.Println("\nTesting Report")
	fmt.Println("================================")
	infoColor.Printf("Testing accuracy: %.4f\n", result.Accuracy)
	infoColor.Printf("Testing prediction time: %.2fs\n", report.TestingTime.Seconds())

	fmt.Println("\nConfusion Matrix:")
	printConfusionMatrix(result)
	fmt.Println()

	for _, ck := range physics.Classes() {
		ca := result.PerClass[ck]
		if !ca.Defined {
			breakdownColor.Printf("Accuracy %s: n/a (no true instances, %d records)\n", ck, segmented[ck].Len())
			continue
		}
		breakdownColor.Printf("Accuracy %s: %.4f (%d/%d)\n", ck, ca.Value, ca.Correct, ca.Total)
	}
}

// printConfusionMatrix renders rows as true classes and columns as
// predicted classes, in the fixed report ordering.
func printConfusionMatrix(result *metrics.Result) {
	table := tablewriter.NewWriter(os.Stdout)

	header := []string{"true \\ predicted"}
	for _, ck := range physics.Classes() {
		header = append(header, ck.String())
	}
	table.SetHeader(header)

	for _, trueClass := range physics.Classes() {
		row := []string{trueClass.String()}
		for _, predClass := range physics.Classes() {
			row = append(row, strconv.Itoa(result.Confusion[trueClass][predClass]))
		}
		table.Append(row)
	}
	table.Render()
}
