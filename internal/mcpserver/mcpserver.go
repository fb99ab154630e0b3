// Package mcpserver exposes the recorded transcription log as an MCP
// tool server, per spec.md §6: the pipeline only ever writes markdown
// files under output_dir, so every tool here works by reading and
// parsing those files rather than talking to the pipeline directly.
// Grounded on the github.com/modelcontextprotocol/go-sdk/mcp
// dependency pulled in by the pack's MrWong99-glyphoxa (an MCP host)
// and the fankserver-discord-voice-mcp / gabrielpreston-audio-orchestrator
// manifests (MCP servers in the same voice/transcription domain).
package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server backs the MCP tool surface with a directory of daily
// markdown logs.
type Server struct {
	outputDir string
	log       *slog.Logger
}

func New(outputDir string) *Server {
	return &Server{outputDir: outputDir, log: slog.With("component", "mcpserver")}
}

// Run registers every tool and serves them over stdio until ctx is
// cancelled.
func (s *Server) Run(ctx context.Context) error {
	server := mcp.NewServer(&mcp.Implementation{Name: "hoover", Version: "0.1.0"}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_transcriptions",
		Description: "Full-text search the recorded transcription logs, optionally bounded by date.",
	}, s.searchTranscriptions)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_day",
		Description: "Return the full markdown log for a single date (YYYY-MM-DD).",
	}, s.getDay)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_dates",
		Description: "List every date that has a recorded transcription log.",
	}, s.listDates)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_date_range",
		Description: "Return the concatenated markdown logs for an inclusive date range.",
	}, s.getDateRange)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_summary",
		Description: "Return segment and speaker counts across all recorded logs.",
	}, s.getSummary)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_speakers",
		Description: "List every speaker name that appears in the recorded logs.",
	}, s.getSpeakers)

	return server.Run(ctx, &mcp.StdioTransport{})
}

type SearchParams struct {
	Query string `json:"query"`
	From  string `json:"from,omitempty"`
	To    string `json:"to,omitempty"`
}

func (s *Server) searchTranscriptions(ctx context.Context, req *mcp.CallToolRequest, params SearchParams) (*mcp.CallToolResult, any, error) {
	dates, err := s.datesInRange(params.From, params.To)
	if err != nil {
		return errResult(err), nil, nil
	}

	query := strings.ToLower(params.Query)
	var matches []string
	for _, date := range dates {
		segs, err := s.readSegments(date)
		if err != nil {
			continue
		}
		for _, seg := range segs {
			if strings.Contains(strings.ToLower(seg.text), query) {
				matches = append(matches, fmt.Sprintf("%s %s: %s", date, seg.minuteKey, seg.text))
			}
		}
	}

	if len(matches) == 0 {
		return textResult("no matches"), nil, nil
	}
	return textResult(strings.Join(matches, "\n")), nil, nil
}

type DateParams struct {
	Date string `json:"date"`
}

func (s *Server) getDay(ctx context.Context, req *mcp.CallToolRequest, params DateParams) (*mcp.CallToolResult, any, error) {
	data, err := os.ReadFile(s.pathFor(params.Date))
	if err != nil {
		return errResult(fmt.Errorf("no log for %s: %w", params.Date, err)), nil, nil
	}
	return textResult(string(data)), nil, nil
}

type NoParams struct{}

func (s *Server) listDates(ctx context.Context, req *mcp.CallToolRequest, params NoParams) (*mcp.CallToolResult, any, error) {
	dates, err := s.allDates()
	if err != nil {
		return errResult(err), nil, nil
	}
	return textResult(strings.Join(dates, "\n")), nil, nil
}

type RangeParams struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (s *Server) getDateRange(ctx context.Context, req *mcp.CallToolRequest, params RangeParams) (*mcp.CallToolResult, any, error) {
	dates, err := s.datesInRange(params.From, params.To)
	if err != nil {
		return errResult(err), nil, nil
	}

	var out strings.Builder
	for _, date := range dates {
		data, err := os.ReadFile(s.pathFor(date))
		if err != nil {
			continue
		}
		out.Write(data)
		out.WriteString("\n")
	}
	return textResult(out.String()), nil, nil
}

func (s *Server) getSummary(ctx context.Context, req *mcp.CallToolRequest, params NoParams) (*mcp.CallToolResult, any, error) {
	dates, err := s.allDates()
	if err != nil {
		return errResult(err), nil, nil
	}

	segmentCount := 0
	speakers := map[string]struct{}{}
	for _, date := range dates {
		segs, err := s.readSegments(date)
		if err != nil {
			continue
		}
		segmentCount += len(segs)
		for _, seg := range segs {
			if seg.speaker != "" {
				speakers[seg.speaker] = struct{}{}
			}
		}
	}

	summary := fmt.Sprintf("days: %d\nsegments: %d\nspeakers: %d", len(dates), segmentCount, len(speakers))
	return textResult(summary), nil, nil
}

func (s *Server) getSpeakers(ctx context.Context, req *mcp.CallToolRequest, params NoParams) (*mcp.CallToolResult, any, error) {
	dates, err := s.allDates()
	if err != nil {
		return errResult(err), nil, nil
	}

	speakers := map[string]struct{}{}
	for _, date := range dates {
		segs, err := s.readSegments(date)
		if err != nil {
			continue
		}
		for _, seg := range segs {
			if seg.speaker != "" {
				speakers[seg.speaker] = struct{}{}
			}
		}
	}

	names := make([]string, 0, len(speakers))
	for name := range speakers {
		names = append(names, name)
	}
	sort.Strings(names)
	return textResult(strings.Join(names, "\n")), nil, nil
}

func (s *Server) pathFor(date string) string {
	return filepath.Join(s.outputDir, date+".md")
}

func (s *Server) allDates() ([]string, error) {
	entries, err := os.ReadDir(s.outputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read output dir: %w", err)
	}

	var dates []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasSuffix(name, ".md") {
			dates = append(dates, strings.TrimSuffix(name, ".md"))
		}
	}
	sort.Strings(dates)
	return dates, nil
}

func (s *Server) datesInRange(from, to string) ([]string, error) {
	all, err := s.allDates()
	if err != nil {
		return nil, err
	}
	if from == "" && to == "" {
		return all, nil
	}

	var out []string
	for _, d := range all {
		if from != "" && d < from {
			continue
		}
		if to != "" && d > to {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

type segment struct {
	minuteKey string
	speaker   string
	text      string
}

var speakerLine = regexp.MustCompile(`^\*\*(.+?):\*\* (.*)$`)
var headingLine = regexp.MustCompile(`^## (\d{2}:\d{2})$`)

// readSegments reparses a day file back into segments. This undoes
// Writer.render (internal/markdown), tolerating the heading-dedup
// behavior where a repeated minute doesn't get its own "## HH:MM".
func (s *Server) readSegments(date string) ([]segment, error) {
	data, err := os.ReadFile(s.pathFor(date))
	if err != nil {
		return nil, err
	}

	var segs []segment
	minuteKey := ""
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "# ") {
			continue
		}
		if m := headingLine.FindStringSubmatch(line); m != nil {
			minuteKey = m[1]
			continue
		}
		if m := speakerLine.FindStringSubmatch(line); m != nil {
			segs = append(segs, segment{minuteKey: minuteKey, speaker: m[1], text: m[2]})
			continue
		}
		segs = append(segs, segment{minuteKey: minuteKey, text: line})
	}
	return segs, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

func errResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{IsError: true, Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}}}
}
