package ui

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

type menuOption struct {
	title   string
	handler func()
}

// ShowMenu displays the main menu and handles user input
func ShowMenu() {
	menuOptions := []menuOption{
		{"Run change detection for a scene", RunDetection},
		{"Run a batch job file", RunBatch},
		{"View the list of available scenes", ListScenes},
		{"View the dates available for a scene", ListSceneDates},
		{"Exit the application", func() { fmt.Println("Exiting..."); os.Exit(0) }},
	}

	menu := color.New(color.FgBlue)
	for {
		menu.Println("===================")
		for i, opt := range menuOptions {
			menu.Printf("%d. %s\n", i+1, opt.title)
		}

		choice, err := ReadInt("Please enter your choice: ", 1, len(menuOptions), 0)
		if err != nil || choice == 0 {
			PrintError("Invalid choice. Please try again.")
			continue
		}
		menuOptions[choice-1].handler()
	}
}
