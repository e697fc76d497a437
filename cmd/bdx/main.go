package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	cl "berrydex/internal/cli"
	"berrydex/internal/config"
	"berrydex/internal/market"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	cfg := config.LoadCLIFromEnv()
	apiBase := cfg.APIBaseURL

	root := &cobra.Command{
		Use:          "bdx",
		Short:        "Berrydex character market client",
		SilenceUsage: true,
	}

	root.AddCommand(
		newAccountCmd(&apiBase),
		newCharactersCmd(&apiBase),
		newShowCmd(&apiBase),
		newBuyCmd(&apiBase),
		newSellCmd(&apiBase),
		newPortfolioCmd(&apiBase),
		newTxCmd(&apiBase),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newClient(apiBase *string) *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(*apiBase), "/"))
}

func newAccountCmd(apiBase *string) *cobra.Command {
	account := &cobra.Command{
		Use:   "account",
		Short: "Manage the local trading account",
	}

	account.AddCommand(&cobra.Command{
		Use:   "create [username]",
		Short: "Create an account and remember it locally",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := ""
			if len(args) > 0 {
				username = strings.TrimSpace(args[0])
			} else {
				var err error
				username, err = promptOptional("Username (optional)")
				if err != nil {
					return err
				}
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			profile, err := client.CreateAccount(ctx, uuid.NewString(), username)
			if err != nil {
				return err
			}
			if err := cl.SaveAccount(cl.Account{AccountID: profile.ID, Username: profile.Username}); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Account created with %s berries. ID saved locally.", formatCents(profile.BerriesCents)))
			return nil
		},
	})

	account.AddCommand(&cobra.Command{
		Use:   "use [account_id]",
		Short: "Point the CLI at an existing account id",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) > 0 {
				id = strings.TrimSpace(args[0])
			} else {
				var err error
				id, err = promptRequired("Account ID")
				if err != nil {
					return err
				}
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			profile, err := client.Account(ctx, id)
			if err != nil {
				return err
			}
			if err := cl.SaveAccount(cl.Account{AccountID: profile.ID, Username: profile.Username}); err != nil {
				return err
			}
			printSuccess("Account saved locally.")
			return nil
		},
	})

	account.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the active account balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			acct, err := cl.LoadAccount()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			profile, err := client.Account(ctx, acct.AccountID)
			if err != nil {
				return err
			}
			renderAccount(profile)
			return nil
		},
	})

	account.AddCommand(&cobra.Command{
		Use:   "forget",
		Short: "Remove the locally saved account id",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cl.ClearAccount(); err != nil {
				return err
			}
			printSuccess("Local account cleared.")
			return nil
		},
	})

	return account
}

func newCharactersCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:     "characters",
		Short:   "List tradeable characters",
		Aliases: []string{"ls"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			out, err := client.Characters(ctx)
			if err != nil {
				return err
			}
			renderCharacters(out)
			return nil
		},
	}
}

func newShowCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show [slug]",
		Short: "Inspect one character with recent price history",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slug, err := slugFromArgsOrPrompt(args)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			out, err := client.Character(ctx, slug)
			if err != nil {
				return err
			}
			renderCharacterDetail(out)
			return nil
		},
	}
}

func newBuyCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "buy [slug] [shares]",
		Short: "Buy shares of a character",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return placeOrderCommand(cmd, apiBase, market.SideBuy, args)
		},
	}
}

func newSellCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sell [slug] [shares]",
		Short: "Sell shares of a character",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return placeOrderCommand(cmd, apiBase, market.SideSell, args)
		},
	}
}

func placeOrderCommand(cmd *cobra.Command, apiBase *string, side market.Side, args []string) error {
	acct, err := cl.LoadAccount()
	if err != nil {
		return fmt.Errorf("account required: %w", err)
	}
	slug, err := slugFromArgsOrPrompt(args)
	if err != nil {
		return err
	}
	var shares int64
	if len(args) > 1 {
		shares, err = strconv.ParseInt(strings.TrimSpace(args[1]), 10, 64)
		if err != nil || shares <= 0 {
			return fmt.Errorf("invalid share quantity %q", args[1])
		}
	} else {
		shares, err = promptInt64("Shares", 1)
		if err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	client := newClient(apiBase)
	out, err := client.PlaceOrder(ctx, acct.AccountID, slug, side, shares)
	if err != nil {
		return err
	}
	renderOrderResult(out, slug)
	return nil
}

func newPortfolioCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:     "portfolio",
		Short:   "Show holdings, valuation, and net worth",
		Aliases: []string{"pf"},
		RunE: func(cmd *cobra.Command, args []string) error {
			acct, err := cl.LoadAccount()
			if err != nil {
				return fmt.Errorf("account required: %w", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			out, err := client.Portfolio(ctx, acct.AccountID)
			if err != nil {
				return err
			}
			renderPortfolio(out)
			return nil
		},
	}
}

func newTxCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "tx",
		Short: "Show recent transactions",
		RunE: func(cmd *cobra.Command, args []string) error {
			acct, err := cl.LoadAccount()
			if err != nil {
				return fmt.Errorf("account required: %w", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			out, err := client.Transactions(ctx, acct.AccountID)
			if err != nil {
				return err
			}
			renderTransactions(out)
			return nil
		},
	}
}

func slugFromArgsOrPrompt(args []string) (string, error) {
	if len(args) > 0 {
		slug := strings.ToLower(strings.TrimSpace(args[0]))
		if slug == "" {
			return "", fmt.Errorf("character slug is required")
		}
		return slug, nil
	}
	slug, err := promptRequired("Character")
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(slug)), nil
}
