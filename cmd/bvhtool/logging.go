package main

import (
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

var logger = log.WithField("app", "bvhtool")

func setupLogging(ctx *cli.Context) {
	log.SetLevel(log.WarnLevel)
	if ctx.GlobalBool("v") {
		log.SetLevel(log.InfoLevel)
	}
	if ctx.GlobalBool("vv") {
		log.SetLevel(log.DebugLevel)
	}
}
