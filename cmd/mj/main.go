package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/franz/media-janitor/internal/util"
)

var (
	// Version is set at build time
	Version = "dev"

	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "mj",
		Short: "Media Janitor - migrate a messy photo and video archive into a dated library",
		Long: `mj (Media Janitor) migrates an unorganized archive of photos, videos and
DVD folders into a date-organized output tree.

Work happens in three stages around a line-delimited manifest:
  plan    walk the input, date every asset, find exact duplicates, write the manifest
  apply   materialize the manifest (copy photos, convert videos and DVDs to MP4)
  report  recompute statistics from the manifest and check the outputs

apply never overwrites an existing destination, so it can be re-run after an
interruption.`,
		Version:           Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setupLogging,
		RunE:              runRoot,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/mj.yaml or ./mj.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "quiet output (errors only)")
	rootCmd.PersistentFlags().String("artifacts", "artifacts", "directory for JSONL event logs")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored log output")

	// Bind flags to viper
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	viper.BindPFlag("artifacts", rootCmd.PersistentFlags().Lookup("artifacts"))
	viper.BindPFlag("no_color", rootCmd.PersistentFlags().Lookup("no-color"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
		viper.SetConfigName("mj")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("MJ")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && !viper.GetBool("quiet") {
		util.InfoLog("Using config file: %s", viper.ConfigFileUsed())
	}
}

func setupLogging(cmd *cobra.Command, args []string) error {
	util.SetVerbose(GetConfigBool("verbose"))
	util.SetQuiet(GetConfigBool("quiet"))
	util.SetColors(!GetConfigBool("no_color") && util.StderrIsTerminal())
	return nil
}

// runRoot prints usage to stderr when no command is given
func runRoot(cmd *cobra.Command, args []string) error {
	cmd.SetOut(cmd.ErrOrStderr())
	cmd.Usage()
	return fmt.Errorf("missing command")
}

// execute runs the CLI with args. An unknown command also prints usage to
// stderr.
func execute(args []string, stderr io.Writer) error {
	rootCmd.SetArgs(args)
	rootCmd.SetErr(stderr)

	err := rootCmd.Execute()
	if err != nil && strings.HasPrefix(err.Error(), "unknown command") {
		rootCmd.SetOut(stderr)
		rootCmd.Usage()
	}
	return err
}

func main() {
	if err := execute(os.Args[1:], os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
