package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	apperrors "github.com/Aman-CERP/amanfind/internal/errors"
	"github.com/Aman-CERP/amanfind/internal/interaction"
	"github.com/Aman-CERP/amanfind/internal/output"
)

func newInteractCmd() *cobra.Command {
	var q string

	cmd := &cobra.Command{
		Use:   "interact <id> <view|download|select>",
		Short: "Record a user interaction with a file",
		Long: `Record that a file was viewed, downloaded or selected. Interactions
raise the file's ranking in later searches, and passing --query also boosts
it for that exact query.`,
		Example: `  amanfind interact 42 view
  amanfind interact 42 select --query "vacation photos"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteract(cmd.Context(), cmd, args[0], args[1], q)
		},
	}

	cmd.Flags().StringVarP(&q, "query", "q", "", "Query that led to this interaction")
	return cmd
}

func runInteract(ctx context.Context, cmd *cobra.Command, rawID, rawKind, q string) error {
	out := output.New(cmd.OutOrStdout())

	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return apperrors.New(apperrors.ErrCodeInvalidInput, fmt.Sprintf("invalid file id %q", rawID), err)
	}
	kind, err := interaction.ParseKind(rawKind)
	if err != nil {
		return apperrors.New(apperrors.ErrCodeInvalidInteraction, err.Error(), err).
			WithSuggestion("Use one of: view, download, select")
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if err := a.engine.RecordInteraction(id, kind, q); err != nil {
		return apperrors.New(apperrors.ErrCodeInvalidInteraction, err.Error(), err)
	}
	if err := a.store.RecordInteraction(ctx, id, kind, q, time.Now()); err != nil {
		return err
	}

	slog.Info("interaction recorded",
		slog.Int64("id", id),
		slog.String("kind", string(kind)),
		slog.String("query", q))

	rec, known := a.records.Lookup(id)
	if !known {
		out.Warningf("File %d is not in the catalog; the interaction is kept anyway", id)
		return nil
	}
	out.Successf("Recorded %s of %s (id %d)", kind, rec.Name, id)
	return nil
}
