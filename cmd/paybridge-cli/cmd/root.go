package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "paybridge-cli",
	Short: "http client for the paybridge server",
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("endpoint", "l", "http://localhost:8080", "server endpoint")
	_ = viper.BindPFlag("endpoint", rootCmd.PersistentFlags().Lookup("endpoint"))
	viper.SetEnvPrefix("paybridge")
	viper.AutomaticEnv()
}

func newClient() *resty.Client {
	return resty.New().
		SetBaseURL(viper.GetString("endpoint")).
		SetHeader("Accept", "application/json")
}

// call sends the request and prints the JSON response. Error responses are
// printed too and reported as a failure.
func call(cmd *cobra.Command, req *resty.Request, method, path string) error {
	var body map[string]any
	resp, err := req.SetContext(cmd.Context()).SetResult(&body).SetError(&body).Execute(method, path)
	if err != nil {
		return err
	}

	if err := printJson(cmd, body); err != nil {
		return err
	}

	if resp.IsError() {
		return fmt.Errorf("request failed with status %d", resp.StatusCode())
	}

	return nil
}

func printJson(cmd *cobra.Command, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	cmd.Println(string(b))
	return nil
}
