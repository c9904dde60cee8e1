// Package main is horusctl, a small operator CLI for inspecting a
// running router broker's subscription table and health.
package main

import (
	"fmt"
	"io"
	"net/http"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/urfave/cli"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	cliName = "horusctl"
)

var addrFlag = cli.StringFlag{
	Name:  "addr",
	Usage: "broker admin address, e.g. 127.0.0.1:8778",
	Value: "127.0.0.1:8778",
}

func main() {
	app := cli.NewApp()
	app.Name = cliName
	app.Usage = "inspect a running horus-router broker"
	app.Commands = []cli.Command{
		topicsCommand,
		healthCommand,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var topicsCommand = cli.Command{
	Name:  "topics",
	Usage: "list topics and their live subscriber counts",
	Flags: []cli.Flag{addrFlag},
	Action: func(c *cli.Context) error {
		body, err := getBody(c.String("addr"), "/stats")
		if err != nil {
			return err
		}
		var snap struct {
			TopicSubscribers map[string]int `json:"topic_subscribers"`
		}
		if err := json.Unmarshal(body, &snap); err != nil {
			return fmt.Errorf("decoding /stats response: %w", err)
		}
		if len(snap.TopicSubscribers) == 0 {
			fmt.Println("no active topics")
			return nil
		}
		for topic, n := range snap.TopicSubscribers {
			fmt.Printf("%-40s %d subscriber(s)\n", topic, n)
		}
		return nil
	},
}

var healthCommand = cli.Command{
	Name:  "health",
	Usage: "check whether the broker's admin surface is reachable",
	Flags: []cli.Flag{addrFlag},
	Action: func(c *cli.Context) error {
		body, err := getBody(c.String("addr"), "/healthz")
		if err != nil {
			return err
		}
		fmt.Println(string(body))
		return nil
	},
}

func getBody(addr, path string) ([]byte, error) {
	resp, err := http.Get("http://" + addr + path)
	if err != nil {
		return nil, fmt.Errorf("reaching broker admin surface at %s: %w", addr, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("broker admin surface returned %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}
