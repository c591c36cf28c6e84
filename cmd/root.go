package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"binder/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "binder",
	Short: "binder - bind folders of images into PDFs",
	Long: "binder scans folders of images, groups them by filename patterns and writes one PDF per group,\n" +
		"keeping the page order you choose.",
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./binder.yaml or ~/.config/binder/binder.yaml)")
	rootCmd.PersistentFlags().String("log-dir", "", "directory for error logs (default: ~/.config/binder/logs)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log debug records to the error log")
	viper.BindPFlag("log_dir", rootCmd.PersistentFlags().Lookup("log-dir"))

	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})
}

func initConfig() {
	config.SetDefaults(viper.GetViper())

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("binder")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath(filepath.Dir(config.DefaultPath()))
	}

	viper.SetEnvPrefix("BINDER")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// configPath is the settings file the patterns commands edit: the one viper
// loaded, or the default location.
func configPath() string {
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		return cfgFile
	}
	return config.DefaultPath()
}

func stateDir() string {
	return filepath.Dir(config.DefaultPath())
}

func logDir(s config.Settings) string {
	if s.LogDir != "" {
		return s.LogDir
	}
	return filepath.Join(stateDir(), "logs")
}

// flagKeys maps command flags onto settings keys.
var flagKeys = map[string]string{
	"recursive":     "recursive",
	"delete":        "delete_after_convert",
	"page":          "page_mode",
	"size":          "page_size",
	"width":         "page_width",
	"height":        "page_height",
	"template":      "output_template",
	"placement":     "placement",
	"output":        "output_dir",
	"merge":         "merge",
	"match":         "match",
	"stop-on-error": "stop_on_decode_error",
	"workers":       "workers",
	"natural":       "natural_sort",
	"ext":           "extensions",
}

// bindFlags binds the flags of the command being run. Binding happens per
// run because convert and scan share keys.
func bindFlags(cmd *cobra.Command, _ []string) error {
	var err error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok || err != nil {
			return
		}
		err = viper.BindPFlag(key, f)
	})
	return err
}

// addPlanFlags registers the flags that shape scanning and grouping.
func addPlanFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("recursive", "r", false, "descend into subfolders")
	cmd.Flags().StringSlice("ext", nil, "image extensions to include (default: png,jpg,jpeg,bmp,gif,tiff,tif,webp)")
	cmd.Flags().String("template", "", "output name template using {label}, {folder} and {path}")
	cmd.Flags().String("placement", "", "write PDFs inside each folder or beside it (inside|beside)")
	cmd.Flags().StringP("output", "o", "", "write every PDF to this directory instead")
	cmd.Flags().String("merge", "", "merge same-labeled groups across folders (folder|label)")
	cmd.Flags().String("match", "", "match patterns against the file name or the relative path (filename|path)")
	cmd.Flags().Bool("natural", false, "sort names naturally (page2 before page10)")
	cmd.PreRunE = bindFlags
}

func loadSettings() (config.Settings, error) {
	return config.FromViper(viper.GetViper())
}
