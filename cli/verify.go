package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/alecthomas/kong"

	"github.com/robinvdvleuten/stockcard/loader"
	"github.com/robinvdvleuten/stockcard/stockcard"
)

type VerifyCmd struct {
	Cards []string `help:"Stock card ids (all cards when omitted)." arg:"" optional:""`
}

func (cmd *VerifyCmd) Run(ctx *kong.Context, globals *Globals) error {
	runCtx, report := startTelemetry(context.Background(), ctx, globals, "verify")
	defer report()

	a, err := openApp(runCtx, ctx, globals, false)
	if err != nil {
		return err
	}
	defer a.Close()

	cards, err := cmd.load(runCtx, a)
	if err != nil {
		var parseErr *loader.ParseError
		if errors.As(err, &parseErr) {
			_, _ = fmt.Fprintln(ctx.Stderr, NewErrorRenderer(ctx.Stderr).Render(parseErr))
			_, _ = fmt.Fprintln(ctx.Stderr)
			printError(ctx.Stderr, "parse error")
			report()
			return NewCommandError(1)
		}
		return err
	}

	problems := 0
	for _, card := range cards {
		err := a.engine.Verify(runCtx, card)
		var verrs *stockcard.VerificationErrors
		switch {
		case err == nil:
			continue
		case errors.As(err, &verrs):
			problems += len(verrs.Errors)
			printError(ctx.Stderr, fmt.Sprintf("%s (%s)", card.ID, card.StockNumber))
			_, _ = fmt.Fprintln(ctx.Stderr, NewErrorRenderer(ctx.Stderr, WithCard(card)).RenderAll(verrs.Errors))
			_, _ = fmt.Fprintln(ctx.Stderr)
		default:
			return err
		}
	}

	if problems > 0 {
		printError(ctx.Stderr, fmt.Sprintf("%d problem(s) found", problems))
		report()
		return NewCommandError(1)
	}

	printSuccess(ctx.Stdout, fmt.Sprintf("%d stock card(s) verified", len(cards)))
	return nil
}

func (cmd *VerifyCmd) load(ctx context.Context, a *app) ([]stockcard.StockCard, error) {
	if len(cmd.Cards) == 0 {
		return a.backend.Cards(ctx)
	}

	cards := make([]stockcard.StockCard, 0, len(cmd.Cards))
	for _, id := range cmd.Cards {
		card, err := a.backend.Card(ctx, id)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	return cards, nil
}
