// Package main implements an interactive client for the xiangqi session server.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"xiangqi/internal/client/commands"
	"xiangqi/internal/client/display"
)

func main() {
	var (
		apiURL  = flag.String("api", "http://localhost:8080", "Server base URL")
		history = flag.String("history", ".xiangqi_history", "Readline history file")
		color   = flag.String("color", "auto", "Color output: auto, always or never")
	)
	flag.Parse()

	switch *color {
	case "always":
		display.Enable(true)
	case "never":
		display.Enable(false)
	default:
		display.AutoDetect()
	}

	s := commands.NewSession(*apiURL)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          display.Prompt("xiangqi"),
		HistoryFile:     *history,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Printf("%s%s%s\n", display.Red, err.Error(), display.Reset)
		os.Exit(1)
	}
	defer rl.Close()

	fmt.Printf("%sXiangqi Client%s\n", display.Cyan, display.Reset)
	fmt.Printf("%sAPI: %s%s\n", display.Cyan, s.APIBaseURL, display.Reset)
	fmt.Printf("Type 'help' for commands\n\n")

	registry := commands.NewRegistry(s)

	for {
		rl.SetPrompt(buildPrompt(s))

		line, err := rl.Readline()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "quit" {
			break
		}

		if strings.HasSuffix(line, " -v") {
			s.Verbose = true
			line = strings.TrimSuffix(line, " -v")
		} else {
			s.Verbose = false
		}

		if err := registry.Execute(line); errors.Is(err, commands.ErrExit) {
			break
		}
	}
}

func buildPrompt(s *commands.Session) string {
	prompt := "xiangqi"
	if s.SessionID == "" {
		return display.Prompt(prompt)
	}

	prompt += display.Yellow + " [" + display.White + s.SessionID[:8] + display.Reset
	if s.Token == "" {
		prompt += display.Yellow + " ro"
	}
	prompt += display.Yellow + "]"

	if st := s.State; st != nil {
		switch {
		case st.Outcome != "ongoing":
			prompt += " - " + display.Magenta + st.Outcome + display.Reset
		case st.Thinking:
			prompt += " - " + display.Magenta + "thinking" + display.Reset
		default:
			prompt += " - Turn:" + display.ColorForSide(st.Turn)
		}
	}
	return display.Prompt(prompt)
}
