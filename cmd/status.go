package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverURL string
)

var statusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Query server status or specific job",
	Long: `Queries the server for job status information.
If no job-id is provided, lists all jobs.
If job-id is provided, shows detailed status for that job.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return listJobs(fmt.Sprintf("%s/api/v1/jobs", serverURL))
	}

	jobID := args[0]
	return getJobStatus(fmt.Sprintf("%s/api/v1/jobs/%s/status", serverURL, jobID), jobID)
}

func listJobs(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned error: %s", string(body))
	}

	var jobs []map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&jobs); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if len(jobs) == 0 {
		fmt.Println("No jobs found")
		return nil
	}

	fmt.Printf("Found %d job(s):\n\n", len(jobs))
	for _, job := range jobs {
		config, _ := job["config"].(map[string]interface{})
		fmt.Printf("Job ID: %s\n", job["id"])
		fmt.Printf("  State: %s\n", job["state"])
		if config != nil {
			fmt.Printf("  Population: %v\n", config["population"])
			fmt.Printf("  Generations: %v\n", config["generations"])
		}
		fmt.Printf("  Generation: %v\n", job["generation"])
		if cost, ok := job["bestCost"].(float64); ok && cost > 0 {
			fmt.Printf("  Best cost: %.4f\n", cost)
		}
		fmt.Println()
	}

	return nil
}

func getJobStatus(url, jobID string) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("job not found: %s", jobID)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned error: %s", string(body))
	}

	var status map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	fmt.Printf("Job: %s\n", status["id"])
	fmt.Printf("State: %s\n", status["state"])
	fmt.Println()

	if config, ok := status["config"].(map[string]interface{}); ok {
		fmt.Println("Configuration:")
		fmt.Printf("  Population: %v\n", config["population"])
		fmt.Printf("  Generations: %v\n", config["generations"])
		fmt.Printf("  Retain rate: %v\n", config["retainRate"])
		fmt.Printf("  Random select rate: %v\n", config["randomSelectRate"])
		fmt.Printf("  Mutate rate: %v\n", config["mutateRate"])
		fmt.Printf("  Seed: %v\n", config["seed"])
		fmt.Println()
	}

	fmt.Println("Progress:")
	fmt.Printf("  Generation: %v\n", status["generation"])
	if grade, ok := status["initialGrade"].(float64); ok && grade > 0 {
		fmt.Printf("  Initial grade: %.4f\n", grade)
	}
	if grade, ok := status["grade"].(float64); ok && grade > 0 {
		fmt.Printf("  Grade: %.4f\n", grade)
	}
	if cost, ok := status["bestCost"].(float64); ok && cost > 0 {
		fmt.Printf("  Best cost: %.4f\n", cost)
	}

	if elapsed, ok := status["elapsed"].(float64); ok {
		fmt.Printf("  Elapsed: %s\n", time.Duration(elapsed*float64(time.Second)).Round(time.Millisecond))
	}
	if eps, ok := status["eps"].(float64); ok && eps > 0 {
		fmt.Printf("  Throughput: %.1f evaluations/sec\n", eps)
	}

	if errMsg, ok := status["error"].(string); ok && errMsg != "" {
		fmt.Printf("\nError: %s\n", errMsg)
	}

	if best, ok := status["bestParams"].(map[string]interface{}); ok && len(best) > 0 {
		fmt.Println("\nBest configuration:")
		data, _ := json.MarshalIndent(best, "  ", "  ")
		fmt.Printf("  %s\n", data)
	}

	return nil
}
