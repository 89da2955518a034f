package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/kailas-cloud/geminibot/internal/version"
)

// CLI defines the command-line interface.
type CLI struct {
	Socket  SocketCmd  `cmd:"" default:"1" help:"Answer mentions over a Slack Socket Mode connection."`
	Lambda  LambdaCmd  `cmd:"" help:"Serve the Slack Events API as an AWS Lambda function URL."`
	Serve   ServeCmd   `cmd:"" help:"Serve the Slack Events API over HTTP."`
	Usage   UsageCmd   `cmd:"" help:"Print today's quota usage from the configured store."`
	Version VersionCmd `cmd:"" help:"Show version information."`

	Config   string `short:"c" help:"Path to config file (default: config/<env>.yaml)." type:"path"`
	Env      string `help:"Environment name (local, dev, docker, prod, lambda)." env:"ENV" default:"local"`
	LogLevel string `help:"Log level override (debug, info, warn, error)." env:"LOG_LEVEL"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("geminibot %s (commit %s, built %s)\n", version.Version, version.Commit, version.Date)
	return nil
}

func main() {
	// The Lambda runtime starts the bootstrap binary without arguments.
	if len(os.Args) == 1 && os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" {
		os.Args = append(os.Args, "lambda")
		if os.Getenv("ENV") == "" {
			_ = os.Setenv("ENV", "lambda")
		}
	}

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("geminibot"),
		kong.Description("Slack mention bot answering with Gemini under a daily quota."),
		kong.UsageOnError(),
	)

	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
