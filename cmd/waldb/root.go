// Package main implements the waldb command-line tool: a thin driver over
// the waldb engine for writing, reading, checkpointing, and inspecting a
// store from outside a Go program.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/hcl"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/leftmike/waldb/flags"
)

var (
	rootCmd = &cobra.Command{
		Use:               "waldb",
		Short:             "A page-oriented, write-ahead-logged storage engine",
		Long:              "waldb drives a single-writer, multi-reader WAL storage engine.",
		PersistentPreRunE: rootPreRun,
		PersistentPostRun: rootPostRun,
	}

	dbPath = "waldb.db"

	logFile   = "waldb.log"
	logLevel  = "info"
	logStderr = false
	logWriter io.WriteCloser

	configFile = "waldb.hcl"
	noConfig   = false

	cfgVars   = map[string]*pflag.Flag{}
	cfg       = map[string]interface{}{}
	flgs      = flags.Default()
	usedFlags = map[string]struct{}{}
)

func init() {
	log.SetFormatter(&log.TextFormatter{
		DisableLevelTruncation: true,
	})

	fs := rootCmd.PersistentFlags()

	fs.StringVar(&dbPath, "db", dbPath, "`path` to the main store file; the WAL is path+\"-wal\"")
	cfgVars["db"] = fs.Lookup("db")

	fs.StringVar(&logFile, "log-file", logFile, "`file` to use for logging")
	cfgVars["log-file"] = fs.Lookup("log-file")

	fs.StringVar(&logLevel, "log-level", logLevel,
		"log level: trace, debug, info, warn, error, fatal, or panic")
	cfgVars["log-level"] = fs.Lookup("log-level")

	fs.BoolVarP(&logStderr, "log-stderr", "s", logStderr, "log to standard error")

	fs.StringVar(&configFile, "config-file", configFile, "`file` to load config from")
	fs.BoolVar(&noConfig, "no-config", noConfig, "don't load config file")
}

func Execute() error {
	return rootCmd.Execute()
}

func rootPreRun(cmd *cobra.Command, args []string) error {
	cmd.Flags().Visit(
		func(flg *pflag.Flag) {
			usedFlags[flg.Name] = struct{}{}
		})

	if configFile != "" && !noConfig {
		if err := loadConfig(); err != nil {
			if !os.IsNotExist(err) {
				return fmt.Errorf("waldb: %s", err)
			}
		}
	}

	if !logStderr && logFile != "" {
		var err error
		logWriter, err = os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
		if err != nil {
			logWriter = nil
			return fmt.Errorf("waldb: %s", err)
		}
		log.SetOutput(logWriter)
	}

	ll, err := log.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("waldb: %s", err)
	}
	log.SetLevel(ll)

	log.WithField("pid", os.Getpid()).Info("waldb starting")
	return nil
}

func rootPostRun(cmd *cobra.Command, args []string) {
	log.WithField("pid", os.Getpid()).Info("waldb done")

	if logWriter != nil {
		logWriter.Close()
	}
}

func loadConfig() error {
	b, err := os.ReadFile(configFile)
	if err != nil {
		return err
	}

	if err := hcl.Decode(&cfg, string(b)); err != nil {
		return err
	}

	for name, val := range cfg {
		if flg, ok := cfgVars[name]; ok {
			if flg == nil {
				continue
			}
			if _, ok := usedFlags[flg.Name]; ok {
				continue
			}
			if err := flg.Value.Set(fmt.Sprintf("%v", val)); err != nil {
				return fmt.Errorf("%s: %s", name, err)
			}
		} else if f, ok := flags.LookupFlag(name); ok {
			n, ok := val.(int)
			if !ok {
				return fmt.Errorf("%s: expected integer value; got %v", name, val)
			}
			flgs[f] = n
		} else {
			return fmt.Errorf("%s is not a config variable", name)
		}
	}

	return nil
}

func checkpointEvery() int {
	return flgs.GetFlag(flags.CheckpointEvery)
}

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
