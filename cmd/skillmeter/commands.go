package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pavelanni/skillmeter/internal/progress"
	"github.com/pavelanni/skillmeter/internal/report"
	"github.com/pavelanni/skillmeter/internal/skills"
	"github.com/pavelanni/skillmeter/internal/store"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a user's quiz history as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	addStoreFlags(f)
	f.String("email", "", "Email of the user to export (required)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	addLogFlags(f)

	_ = cmd.MarkFlagRequired("email")

	return cmd
}

// outputWriter opens path for writing, with "-" or "" meaning stdout.
func outputWriter(path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output file: %w", err)
	}
	return f, f.Close, nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := context.Background()

	db, err := openStore(ctx, v)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	export, err := store.ExportHistory(ctx, db, v.GetString("email"), time.Now())
	if err != nil {
		return fmt.Errorf("export history: %w", err)
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	w, closeFn, err := outputWriter(v.GetString("output"))
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		_ = closeFn()
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	return closeFn()
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Build the PDF learning report for a user's latest quiz",
		RunE:  runReport,
	}
	f := cmd.Flags()
	addStoreFlags(f)
	f.String("email", "", "Email of the user (required)")
	f.String("skill", "", "Report on the latest quiz for this skill (default: latest quiz overall)")
	f.StringP("output", "o", "", "Output PDF path (default: the report's own file name)")
	addLogFlags(f)

	_ = cmd.MarkFlagRequired("email")

	return cmd
}

var errNoSessions = errors.New("no recorded quizzes")

func runReport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := context.Background()

	db, err := openStore(ctx, v)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	email := v.GetString("email")
	u, err := db.FindUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if u == nil {
		return fmt.Errorf("%s: %w", email, store.ErrUserNotFound)
	}

	history, err := db.GetUserSessions(ctx, u.ID)
	if err != nil {
		return fmt.Errorf("get sessions: %w", err)
	}
	candidates := history
	if skill := v.GetString("skill"); skill != "" {
		candidates = progress.FilterSkill(history, skill)
	}
	if len(candidates) == 0 {
		return fmt.Errorf("%s: %w", email, errNoSessions)
	}

	latest := candidates[0]
	now := time.Now()
	pdf, err := report.New(report.WithClock(func() time.Time { return now })).Build(report.Input{
		Email:         u.Email,
		Skill:         latest.Skill,
		Evaluation:    &latest.Evaluation,
		SkillSessions: progress.FilterSkill(history, latest.Skill),
	})
	if err != nil {
		return err
	}

	out := v.GetString("output")
	if out == "" {
		out = report.Filename(latest.Skill, now)
	}
	if err := os.WriteFile(out, pdf, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	slog.Info("report written", "path", out, "skill", latest.Skill, "bytes", len(pdf))
	return nil
}

func skillsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "skills",
		Short: "List or add skills offered for quizzes",
	}
	cmd.PersistentFlags().String("skills-file", "skills.json", "Skill registry file")
	addLogFlags(cmd.PersistentFlags())

	list := &cobra.Command{
		Use:   "list",
		Short: "List the skills in the registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			setupLogging(cmd)
			reg := skills.Open(viperForCmd(cmd).GetString("skills-file"))
			names, err := reg.List()
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}

	add := &cobra.Command{
		Use:   "add NAME...",
		Short: "Add skills to the registry",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(cmd)
			reg := skills.Open(viperForCmd(cmd).GetString("skills-file"))
			if _, err := reg.Seed(); err != nil {
				return err
			}
			for _, name := range args {
				added, err := reg.Add(name)
				if err != nil {
					return fmt.Errorf("add %q: %w", name, err)
				}
				if !added {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: already present\n", name)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: added\n", name)
			}
			return nil
		},
	}

	cmd.AddCommand(list, add)
	return cmd
}
