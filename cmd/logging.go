package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/achilleasa/sahtrace/log"
	"github.com/urfave/cli"
)

var logger = log.New("sahtrace")

// Apply the global logging flags. --log-level overrides the verbosity
// switches whose precedence is --q < --v < --vv. Per-module levels are given
// as "module=level", e.g. "bvh builder=debug".
func setupLogging(ctx *cli.Context) {
	if logFile := ctx.GlobalString("log-file"); logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			logger.Warningf("could not open log file %q: %v; logging to stdout", logFile, err)
		} else {
			log.SetSink(f)
		}
	}

	switch {
	case ctx.GlobalIsSet("log-level"):
		level, err := log.ParseLevel(ctx.GlobalString("log-level"))
		if err != nil {
			logger.Warning(err)
			break
		}
		log.SetLevel(level)
	case ctx.GlobalBool("vv"):
		log.SetLevel(log.Debug)
	case ctx.GlobalBool("v"):
		log.SetLevel(log.Info)
	case ctx.GlobalBool("q"):
		log.SetLevel(log.Warning)
	}

	for _, entry := range ctx.GlobalStringSlice("module-level") {
		module, levelName, err := parseModuleLevel(entry)
		if err != nil {
			logger.Warning(err)
			continue
		}
		level, err := log.ParseLevel(levelName)
		if err != nil {
			logger.Warningf("module %q: %v", module, err)
			continue
		}
		log.SetModuleLevel(module, level)
	}
}

// Split a "module=level" pair.
func parseModuleLevel(entry string) (module, level string, err error) {
	sep := strings.LastIndexByte(entry, '=')
	if sep <= 0 || sep == len(entry)-1 {
		return "", "", fmt.Errorf("invalid module level %q; expected module=level", entry)
	}
	return strings.TrimSpace(entry[:sep]), entry[sep+1:], nil
}
