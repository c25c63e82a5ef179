package ui

import (
	"context"
	"fmt"
	"strconv"

	"github.com/forest-guardian/eds-change-cli/internal/change"
	"github.com/forest-guardian/eds-change-cli/internal/delivery"
	"github.com/forest-guardian/eds-change-cli/internal/notification"
	"github.com/forest-guardian/eds-change-cli/internal/properties"
	"github.com/forest-guardian/eds-change-cli/internal/utils"
)

// RunDetection asks for a scene and dates and runs one change detection
func RunDetection() {
	PrintWarning("Index images ('*_dc4mz.img') and both reflectance stacks ('*_db8mz.img') should be present in data/<scene>.")

	ListScenes()
	job := properties.Job{Scene: ReadString("Enter the scene name: ")}

	start, err := ReadDate("Enter the start date (YYYYMMDD): ")
	if err != nil {
		PrintError(err.Error())
		return
	}
	end, err := ReadDate("Enter the end date (YYYYMMDD): ")
	if err != nil {
		PrintError(err.Error())
		return
	}
	job.StartDate, job.EndDate = start.Format("20060102"), end.Format("20060102")
	job.WindowStart = ReadString(fmt.Sprintf("Enter the window start MMDD [%s]: ", start.Format("0102")))
	job.WindowEnd = ReadString(fmt.Sprintf("Enter the window end MMDD [%s]: ", end.Format("0102")))
	job.Lookback, err = ReadInt(fmt.Sprintf("Enter the lookback years [%d]: ", properties.DefaultLookback), 1, 100, properties.DefaultLookback)
	if err != nil {
		PrintError(err.Error())
		return
	}
	job.IndexKind = ReadString("Enter the index kind, fpc or ndvi [fpc]: ")
	job.OmitStartThreshold = ReadYesNo("Omit the low start cover threshold?")
	job.Footprint = ReadString("Enter a footprint file (optional): ")
	job.Preview = ReadYesNo("Write a preview image?")

	req, err := delivery.RequestFromJob(job)
	if err != nil {
		PrintError(err.Error())
		return
	}

	record, err := delivery.RunChangeDetection(context.Background(), req)
	if err != nil {
		PrintError(fmt.Sprintf("Error running change detection: %s", err.Error()))
		notification.SendDiscordErrorNotification(fmt.Sprintf("EDS change CLI\n\nScene %s failed: %s", job.Scene, err.Error()))
		return
	}

	if record.Cached {
		PrintSuccess(fmt.Sprintf("Outputs are up to date: %s", record.Outputs.DLL))
		return
	}
	PrintSuccess(fmt.Sprintf("Change detection finished!\n Change classes: %s\n Interpretation: %s", record.Outputs.DLL, record.Outputs.DLJ))
	printCounts(record.ClassCounts)
	notification.SendDiscordSuccessNotification("Change detection finished", [][2]string{
		{"Scene", record.Scene},
		{"Dates", job.StartDate + " to " + job.EndDate},
		{"Output", record.Outputs.DLL},
	})
}

func printCounts(counts map[string]int) {
	byClass := make(map[int]int, len(counts))
	for k, n := range counts {
		if c, err := strconv.Atoi(k); err == nil {
			byClass[c] = n
		}
	}
	for _, c := range utils.GetSortedKeys(byClass, true) {
		success.Printf("  %-20s %d\n", change.Class(c).String(), byClass[c])
	}
}

// RunBatch runs a YAML job file
func RunBatch() {
	path := ReadString("Enter the job file path: ")
	rows, err := delivery.RunBatch(context.Background(), path, delivery.BatchOptions{OutputDir: properties.OutputPath()})
	if err != nil {
		PrintError(err.Error())
		return
	}
	for _, r := range rows {
		line := fmt.Sprintf("%d. %s %s-%s: %s", r.Job, r.Scene, r.StartDate, r.EndDate, r.Status)
		if r.Error != "" {
			fail.Println(line + " (" + r.Error + ")")
			continue
		}
		success.Println(line)
	}
}
