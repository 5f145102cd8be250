package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/timshannon/bolthold"

	"github.com/scriptorium/scriptorium/pkg/models"
)

// Colors for terminal output
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorPurple = "\033[35m"
	ColorCyan   = "\033[36m"
	ColorWhite  = "\033[37m"
	ColorBold   = "\033[1m"
)

// ProjectStats holds statistics about the project collection
type ProjectStats struct {
	TotalProjects   int
	WithUpload      int
	WithoutUpload   int
	UniqueTags      int
	TotalUploadSize int64
}

func main() {
	var (
		dbPath      = flag.String("db", "", "Path to the database file (required)")
		showStats   = flag.Bool("stats", false, "Show only statistics")
		tagFilter   = flag.String("tag", "", "Show only projects carrying this tag")
		uploadsOnly = flag.Bool("uploads", false, "Show only projects with a stored manuscript")
		noColor     = flag.Bool("no-color", false, "Disable colored output")
		sortBy      = flag.String("sort", "name", "Sort by: name, created, updated, size")
	)
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -db <database-path> [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExample:\n")
		fmt.Fprintf(os.Stderr, "  %s -db /path/to/scriptorium.db -stats\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -db /path/to/scriptorium.db -tag fantasy -uploads\n", os.Args[0])
		os.Exit(1)
	}

	// Check if database file exists
	if _, err := os.Stat(*dbPath); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error: Database file '%s' does not exist\n", *dbPath)
		os.Exit(1)
	}

	// Open database
	store, err := bolthold.Open(*dbPath, 0600, &bolthold.Options{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	// Fetch all projects
	var projects []*models.Project
	err = store.Find(&projects, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading projects from database: %v\n", err)
		os.Exit(1)
	}

	// Filter projects based on flags
	filtered := filterProjects(projects, *tagFilter, *uploadsOnly)

	// Sort projects
	sortProjects(filtered, *sortBy)

	// Calculate statistics
	stats := calculateStats(projects)

	// Set color functions
	colorize := getColorizer(*noColor)

	// Print header
	printHeader(colorize, *dbPath, len(filtered), len(projects))

	if *showStats {
		printStatistics(colorize, stats)
		return
	}

	// Print project collection
	printProjectCollection(colorize, filtered)

	// Print summary statistics
	fmt.Println("\n" + colorize("cyan", "=== SUMMARY ==="))
	printStatistics(colorize, stats)
}

func filterProjects(projects []*models.Project, tag string, uploadsOnly bool) []*models.Project {
	var filtered []*models.Project

	for _, project := range projects {
		// Filter by tag
		if tag != "" && !hasTag(project, tag) {
			continue
		}

		// Filter by upload presence
		if uploadsOnly && !project.HasUpload() {
			continue
		}

		filtered = append(filtered, project)
	}

	return filtered
}

func hasTag(project *models.Project, tag string) bool {
	tag = strings.ToLower(strings.TrimSpace(tag))
	for _, candidate := range project.Tags {
		if candidate == tag {
			return true
		}
	}
	return false
}

func sortProjects(projects []*models.Project, sortBy string) {
	sort.Slice(projects, func(i, j int) bool {
		switch sortBy {
		case "created":
			return projects[i].CreatedAt.After(projects[j].CreatedAt)
		case "updated":
			return projects[i].UpdatedAt.After(projects[j].UpdatedAt)
		case "size":
			if uploadSize(projects[i]) != uploadSize(projects[j]) {
				return uploadSize(projects[i]) > uploadSize(projects[j])
			}
			return projects[i].Name < projects[j].Name
		default: // name
			return projects[i].Name < projects[j].Name
		}
	})
}

func uploadSize(project *models.Project) int64 {
	if project.Upload == nil {
		return 0
	}
	return project.Upload.Size
}

func calculateStats(projects []*models.Project) ProjectStats {
	stats := ProjectStats{}
	tags := make(map[string]bool)

	for _, project := range projects {
		stats.TotalProjects++

		if project.HasUpload() {
			stats.WithUpload++
			stats.TotalUploadSize += project.Upload.Size
		} else {
			stats.WithoutUpload++
		}

		for _, tag := range project.Tags {
			tags[tag] = true
		}
	}

	stats.UniqueTags = len(tags)
	return stats
}

func getColorizer(noColor bool) func(string, string) string {
	if noColor {
		return func(color, text string) string { return text }
	}

	colors := map[string]string{
		"red":    ColorRed,
		"green":  ColorGreen,
		"yellow": ColorYellow,
		"blue":   ColorBlue,
		"purple": ColorPurple,
		"cyan":   ColorCyan,
		"white":  ColorWhite,
		"bold":   ColorBold,
	}

	return func(color, text string) string {
		if c, ok := colors[color]; ok {
			return c + text + ColorReset
		}
		return text
	}
}

func printHeader(colorize func(string, string) string, dbPath string, filtered, total int) {
	banner := strings.Repeat("=", 78)
	fmt.Println(colorize("bold", banner))
	fmt.Println(colorize("cyan", "                        SCRIPTORIUM DATABASE VIEWER"))
	fmt.Println(colorize("bold", banner))
	fmt.Printf("%s%s\n", colorize("yellow", "Database: "), filepath.Base(dbPath))
	fmt.Printf("%s%d of %d projects\n", colorize("yellow", "Showing: "), filtered, total)
	fmt.Printf("%s%s\n\n", colorize("yellow", "Scanned: "), time.Now().Format("2006-01-02 15:04:05"))
}

func printStatistics(colorize func(string, string) string, stats ProjectStats) {
	fmt.Println(colorize("bold", "PROJECT STATISTICS"))
	fmt.Printf("  Total Projects:  %s\n", colorize("white", fmt.Sprintf("%d", stats.TotalProjects)))
	fmt.Printf("  With Upload:     %s\n", colorize("green", fmt.Sprintf("%d", stats.WithUpload)))
	fmt.Printf("  Without Upload:  %s\n", colorize("yellow", fmt.Sprintf("%d", stats.WithoutUpload)))
	fmt.Printf("  Unique Tags:     %s\n", colorize("purple", fmt.Sprintf("%d", stats.UniqueTags)))
	fmt.Printf("  Stored Text:     %s\n", colorize("cyan", formatBytes(stats.TotalUploadSize)))

	if stats.TotalProjects > 0 {
		uploadedPercent := float64(stats.WithUpload) / float64(stats.TotalProjects) * 100
		fmt.Printf("  Uploaded:        %s\n", colorize("green", fmt.Sprintf("%.1f%%", uploadedPercent)))
	}
	fmt.Println()
}

func printProjectCollection(colorize func(string, string) string, projects []*models.Project) {
	fmt.Println(colorize("bold", "PROJECT COLLECTION"))

	for i, project := range projects {
		printProjectItem(colorize, project, i+1)

		if i < len(projects)-1 {
			fmt.Println(colorize("yellow", strings.Repeat("-", 78)))
		}
	}
}

func printProjectItem(colorize func(string, string) string, project *models.Project, index int) {
	// Status indicator
	statusColor := "yellow"
	statusText := "NO UPLOAD"
	if project.HasUpload() {
		statusColor = "green"
		statusText = "UPLOADED"
	}

	// Print main info
	fmt.Printf("%s %s %s\n",
		colorize("white", fmt.Sprintf("[%03d]", index)),
		colorize("bold", project.Name),
		colorize(statusColor, fmt.Sprintf("[%s]", statusText)))

	// Print details
	details := []string{colorize("blue", project.ID)}

	if len(project.Tags) > 0 {
		details = append(details, colorize("purple", strings.Join(project.Tags, ", ")))
	}

	if project.HasUpload() {
		details = append(details, colorize("cyan", fmt.Sprintf("%s (%s, %d chunk(s))",
			project.Upload.Filename, formatBytes(project.Upload.Size), project.Upload.Chunks)))
	}

	fmt.Printf("    %s\n", strings.Join(details, " | "))

	if project.Description != "" {
		fmt.Printf("    %s\n", project.Description)
	}

	// Timestamps
	fmt.Printf("    %s %s | %s %s\n",
		colorize("white", "Created:"), project.CreatedAt.Format("2006-01-02 15:04"),
		colorize("white", "Updated:"), project.UpdatedAt.Format("2006-01-02 15:04"))

	fmt.Println()
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
