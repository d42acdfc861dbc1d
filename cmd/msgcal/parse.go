package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"msgcal/internal/extract"
	"msgcal/internal/model"
)

type parseOptions struct {
	timezone string
	duration int
	now      string
	format   string
}

func newParseCmd() *cobra.Command {
	opts := &parseOptions{}

	cmd := &cobra.Command{
		Use:   "parse TEXT...",
		Short: "Extract an event from a message and print it",
		Example: `  msgcal parse "Team meeting tmr 3pm"
  msgcal parse --tz Asia/Singapore --format ics "29th 5am" > event.ics
  msgcal parse --now 2024-10-21T09:00:00+08:00 --format json "Meeting Friday"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd.OutOrStdout(), strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringVar(&opts.timezone, "tz", "", "IANA timezone (default from config)")
	cmd.Flags().IntVar(&opts.duration, "duration", 0, "Length of timed events in minutes (default from config)")
	cmd.Flags().StringVar(&opts.now, "now", "", "Reference time, RFC 3339 (default: current time)")
	cmd.Flags().StringVar(&opts.format, "format", "text", "Output format: text, json or ics")

	return cmd
}

func runParse(out io.Writer, text string, opts *parseOptions) error {
	cfg, _, err := loadConfig(true)
	if err != nil {
		return err
	}

	tz := cfg.Timezone
	if opts.timezone != "" {
		tz = opts.timezone
	}
	minutes := cfg.DefaultDurationMinutes
	if opts.duration != 0 {
		minutes = opts.duration
	}
	now := time.Now()
	if opts.now != "" {
		now, err = time.Parse(time.RFC3339, opts.now)
		if err != nil {
			return errors.Wrap(err, "invalid --now")
		}
	}

	rc, err := model.NewResolutionContext(now, tz, minutes)
	if err != nil {
		return err
	}

	res, err := extract.NewPipeline(newResolver(cfg)).Run(text, rc)
	if errors.Is(err, extract.ErrNoMatch) {
		fmt.Fprintln(out, "no event found")
		return errNoEvent
	}
	if err != nil {
		return err
	}

	return writeResult(out, opts.format, res)
}

func writeResult(out io.Writer, format string, res extract.Result) error {
	switch format {
	case "ics":
		_, err := out.Write(res.ICS)
		return err

	case "json":
		type jsonEvent struct {
			Title       string `json:"title"`
			AllDay      bool   `json:"all_day"`
			Start       string `json:"start"`
			End         string `json:"end,omitempty"`
			Matcher     string `json:"matcher"`
			CalendarURL string `json:"calendar_url"`
		}
		ev := jsonEvent{
			Title:       res.Event.Title,
			AllDay:      res.Event.AllDay,
			Start:       formatStart(res.Event),
			Matcher:     res.Match.Matcher,
			CalendarURL: res.CalendarURL,
		}
		if !res.Event.AllDay {
			ev.End = res.Event.End.Format(time.RFC3339)
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(ev)

	case "text", "":
		fmt.Fprintf(out, "Title:  %s\n", res.Event.Title)
		if res.Event.AllDay {
			fmt.Fprintf(out, "Date:   %s (all day)\n", formatStart(res.Event))
		} else {
			fmt.Fprintf(out, "Start:  %s\n", formatStart(res.Event))
			fmt.Fprintf(out, "End:    %s\n", res.Event.End.Format(time.RFC3339))
		}
		fmt.Fprintf(out, "Link:   %s\n", res.CalendarURL)
		return nil

	default:
		return errors.Errorf("unknown format %q", format)
	}
}

func formatStart(ev model.Event) string {
	if ev.AllDay {
		return ev.Start.Format("2006-01-02")
	}
	return ev.Start.Format(time.RFC3339)
}
