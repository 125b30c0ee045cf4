package cmd

import (
	"net/http"

	"github.com/spf13/cobra"
)

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "manage custodial wallets",
}

var walletCreateCmd = &cobra.Command{
	Use:   "create <owner-id>",
	Short: "create a wallet for an owner",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := newClient().R().SetBody(map[string]string{"ownerId": args[0]})
		return call(cmd, req, http.MethodPost, "/wallet/create")
	},
}

var walletBalanceCmd = &cobra.Command{
	Use:   "balance <address>",
	Short: "show the chain balance of an address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := newClient().R().SetPathParam("address", args[0])
		return call(cmd, req, http.MethodGet, "/wallet/balance/{address}")
	},
}

var walletEligibleCmd = &cobra.Command{
	Use:   "eligible <address>",
	Short: "check bootstrap funding eligibility",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := newClient().R().SetPathParam("address", args[0])
		return call(cmd, req, http.MethodGet, "/wallet/bonus-eligible/{address}")
	},
}

func init() {
	rootCmd.AddCommand(walletCmd)
	walletCmd.AddCommand(walletCreateCmd, walletBalanceCmd, walletEligibleCmd)
}
