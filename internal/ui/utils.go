package ui

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
)

var (
	warn    = color.New(color.FgYellow)
	fail    = color.New(color.FgRed)
	success = color.New(color.FgGreen)
	info    = color.New(color.FgBlue)
)

var stdin = bufio.NewReader(os.Stdin)

// PrintWarning displays a warning message with consistent formatting
func PrintWarning(message string) {
	warn.Println("\nWarning:")
	warn.Println(message)
}

// PrintError displays an error message with consistent formatting
func PrintError(message string) {
	fail.Printf("\nError: %s\n", message)
}

// PrintSuccess displays a success message with consistent formatting
func PrintSuccess(message string) {
	success.Printf("\n%s\n", message)
}

func PrintInfo(message string) {
	info.Print(message)
}

// ReadString reads a trimmed line from stdin
func ReadString(prompt string) string {
	PrintInfo(prompt)
	input, _ := stdin.ReadString('\n')
	return strings.TrimSpace(input)
}

// ReadInt reads an integer within [min, max]. An empty answer returns def.
func ReadInt(prompt string, min, max, def int) (int, error) {
	input := ReadString(prompt)
	if input == "" {
		return def, nil
	}
	value, err := strconv.Atoi(input)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %s", input)
	}
	if value < min || value > max {
		return 0, fmt.Errorf("value must be between %d and %d", min, max)
	}
	return value, nil
}

// ReadDate reads a YYYYMMDD date
func ReadDate(prompt string) (time.Time, error) {
	input := ReadString(prompt)
	date, err := time.Parse("20060102", input)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format: %s. Please use YYYYMMDD", input)
	}
	return date, nil
}

func ReadYesNo(prompt string) bool {
	switch strings.ToLower(ReadString(prompt + " [y/N]: ")) {
	case "y", "yes":
		return true
	}
	return false
}
