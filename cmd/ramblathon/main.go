package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/astromechza/ramblathon/pkg/config"
)

var rootCmd = &cobra.Command{
	Use:   "ramblathon",
	Short: "Single-writer collaborative text buffer",
	Long: `Ramblathon accepts one writer at a time over a websocket, buffers the
text it sends, appends it to a document file every flush interval and copies
that file to a timestamped backup every backup interval.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/ramblathon/config.yaml)")
	rootCmd.PersistentFlags().String("addr", "", "host:port of the server (default 127.0.0.1:42069)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("server.addr", rootCmd.PersistentFlags().Lookup("addr"))
}

func initConfig() {
	config.SetDefaults(viper.GetViper())

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("RAMBLATHON")
	// e.g. RAMBLATHON_FLUSH_INTERVAL for flush.interval
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// a missing config file is fine
	_ = viper.ReadInConfig()
}
