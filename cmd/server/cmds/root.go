package cmds

import (
	"context"
	"encoding/json"
	"os"

	"github.com/pandodao/generic"
	"github.com/pandodao/paybridge/core"
	"github.com/spf13/cobra"
)

// Cmd holds operator commands run against the local stores instead of
// starting the server.
type Cmd struct {
	Wallets    core.WalletStore
	Custodians core.CustodianService
	Watches    core.WatchStore
}

func (c *Cmd) Run(ctx context.Context, args []string) error {
	root := &cobra.Command{
		Use:   "paybridge",
		Short: "paybridge",
	}

	root.AddCommand(c.listWalletsCmd())
	root.AddCommand(c.custodiansCmd())
	root.AddCommand(c.watchesCmd())

	root.SetArgs(args)
	root.SetOut(os.Stdout)

	return root.ExecuteContext(ctx)
}

type walletView struct {
	OwnerID string `json:"owner_id"`
	Address string `json:"address"`
}

func viewWallet(key *core.SigningKey) walletView {
	return walletView{OwnerID: key.OwnerID, Address: key.Address}
}

func (c *Cmd) listWalletsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-wallets",
		Short: "list custodial wallet addresses",
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := c.Wallets.List(cmd.Context())
			if err != nil {
				return err
			}

			return jsonPrint(cmd, generic.MapSlice(keys, viewWallet))
		},
	}
}

func (c *Cmd) custodiansCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "custodians",
		Short: "show funding wallets and balances",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.Custodians.Refresh(cmd.Context()); err != nil {
				return err
			}

			type view struct {
				Address string `json:"address"`
				Balance string `json:"balance"`
			}

			return jsonPrint(cmd, generic.MapSlice(c.Custodians.List(), func(cust *core.Custodian) view {
				return view{Address: cust.Address, Balance: core.FromWei(cust.Balance).String()}
			}))
		},
	}
}

func (c *Cmd) watchesCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "watches",
		Short: "list transactions awaiting settlement",
		RunE: func(cmd *cobra.Command, args []string) error {
			watches, err := c.Watches.List(cmd.Context(), limit)
			if err != nil {
				return err
			}

			return jsonPrint(cmd, watches)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 100, "max watches to show")
	return cmd
}

func jsonPrint(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
