package commands

import (
	"fmt"
	"strings"
	"time"

	"xiangqi/internal/client/display"
)

const clearScreen = "\033[H\033[2J"

func (r *Registry) registerDebugCommands() {
	r.Register(&Command{
		Name:        "health",
		ShortName:   ".",
		Description: "Check server health",
		Usage:       "health",
		Handler:     healthHandler,
	})

	r.Register(&Command{
		Name:        "url",
		ShortName:   "/",
		Description: "Show or switch the server (drops the current session)",
		Usage:       "url [apiUrl]",
		Handler:     urlHandler,
	})

	r.Register(&Command{
		Name:        "raw",
		ShortName:   ":",
		Description: "Send raw API request, @ expands to the current session path",
		Usage:       "raw <method> <path> [json-body]   e.g. raw POST @/taps {\"col\":4,\"row\":9}",
		Handler:     rawRequestHandler,
	})

	r.Register(&Command{
		Name:        "token",
		Description: "Print the seat token and a curl line for the tap endpoint",
		Usage:       "token",
		Handler:     tokenHandler,
	})

	r.Register(&Command{
		Name:        "fen",
		Description: "Print the FEN of the current position",
		Usage:       "fen",
		Handler:     fenHandler,
	})

	r.Register(&Command{
		Name:        "clear",
		ShortName:   "-",
		Description: "Clear screen",
		Usage:       "clear",
		Handler:     clearHandler,
	})
}

func healthHandler(s *Session, args []string) error {
	resp, err := s.Client.Health()
	if err != nil {
		return err
	}

	s.printf("%sServer Health:%s\n", display.Cyan, display.Reset)
	s.printf("  Status:   %s\n", resp.Status)
	s.printf("  Time:     %s\n", time.Unix(resp.Time, 0).Format("2006-01-02 15:04:05"))
	if resp.Storage != "" {
		s.printf("  Storage:  %s\n", resp.Storage)
	}
	s.printf("  Sessions: %d\n", resp.Sessions)
	if s.SessionID != "" && s.State != nil {
		s.printf("  Current:  %s (version %d)\n", s.SessionID, s.State.Version)
	}
	return nil
}

// Session ids and seat tokens only mean something to the server that issued them.
func urlHandler(s *Session, args []string) error {
	if len(args) == 0 {
		s.printf("Current API URL: %s\n", s.APIBaseURL)
		return nil
	}

	url := strings.TrimSuffix(args[0], "/")
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "http://" + url
	}
	if url == s.APIBaseURL {
		return nil
	}

	if s.SessionID != "" {
		s.printf("%sLeaving session %s%s\n", display.Yellow, s.SessionID, display.Reset)
		s.forget()
	}
	s.APIBaseURL = url
	s.Client.SetBaseURL(url)

	s.printf("%sAPI URL set to: %s%s\n", display.Cyan, url, display.Reset)
	return nil
}

func rawRequestHandler(s *Session, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: raw <method> <path> [json-body]")
	}

	method := strings.ToUpper(args[0])
	path, err := s.expandPath(args[1])
	if err != nil {
		return err
	}

	body := ""
	if len(args) > 2 {
		body = strings.Join(args[2:], " ")
	}

	return s.Client.RawRequest(method, path, body)
}

// expandPath replaces a leading @ with the current session's resource path.
func (s *Session) expandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "@") {
		return path, nil
	}
	if s.SessionID == "" {
		return "", errNoSession
	}
	return "/api/v1/sessions/" + s.SessionID + strings.TrimPrefix(path, "@"), nil
}

func tokenHandler(s *Session, args []string) error {
	if s.SessionID == "" {
		return errNoSession
	}
	if s.Token == "" {
		s.printf("%sJoined without a token: read-only%s\n", display.Yellow, display.Reset)
		return nil
	}
	s.printf("%s\n", s.Token)
	s.printf("curl -X POST -H 'Authorization: Bearer %s' -H 'Content-Type: application/json' \\\n", s.Token)
	s.printf("  -d '{\"col\":4,\"row\":9}' %s/api/v1/sessions/%s/taps\n", s.APIBaseURL, s.SessionID)
	return nil
}

func fenHandler(s *Session, args []string) error {
	if s.SessionID == "" {
		return errNoSession
	}
	if s.State == nil {
		resp, err := s.Client.GetSession(s.SessionID)
		if err != nil {
			return err
		}
		s.State = resp
	}
	s.printf("%s\n", s.State.FEN)
	return nil
}

func clearHandler(s *Session, args []string) error {
	s.printf("%s", clearScreen)
	return nil
}
