package cmd

import (
	"net/http"
	"strings"

	"github.com/spf13/cobra"
)

var payOpt struct {
	from   string
	to     string
	amount string
	memo   string
}

// payCmd picks the email route when both parties are emails.
var payCmd = &cobra.Command{
	Use:   "pay",
	Short: "send a payment between wallets or emails",
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.Contains(payOpt.from, "@") && strings.Contains(payOpt.to, "@") {
			req := newClient().R().SetBody(map[string]string{
				"fromEmail": payOpt.from,
				"toEmail":   payOpt.to,
				"amountEth": payOpt.amount,
				"memo":      payOpt.memo,
			})

			return call(cmd, req, http.MethodPost, "/payment/email-to-email")
		}

		req := newClient().R().SetBody(map[string]string{
			"fromWallet": payOpt.from,
			"toWallet":   payOpt.to,
			"amountEth":  payOpt.amount,
			"memo":       payOpt.memo,
		})

		return call(cmd, req, http.MethodPost, "/payment/wallet-to-wallet")
	},
}

var faucetOpt struct {
	from   string
	amount string
}

var faucetCmd = &cobra.Command{
	Use:   "faucet <address>",
	Short: "grant bootstrap funds to an address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := newClient().R().SetBody(map[string]string{
			"toWallet":   args[0],
			"amountEth":  faucetOpt.amount,
			"fromWallet": faucetOpt.from,
		})

		return call(cmd, req, http.MethodPost, "/payment/faucet")
	},
}

func init() {
	rootCmd.AddCommand(payCmd, faucetCmd)

	payCmd.Flags().StringVar(&payOpt.from, "from", "", "sender wallet or email")
	payCmd.Flags().StringVar(&payOpt.to, "to", "", "receiver wallet or email")
	payCmd.Flags().StringVar(&payOpt.amount, "amount", "", "amount in ETH")
	payCmd.Flags().StringVar(&payOpt.memo, "memo", "", "memo (optional)")
	_ = payCmd.MarkFlagRequired("from")
	_ = payCmd.MarkFlagRequired("to")
	_ = payCmd.MarkFlagRequired("amount")

	faucetCmd.Flags().StringVar(&faucetOpt.amount, "amount", "1", "amount in ETH")
	faucetCmd.Flags().StringVar(&faucetOpt.from, "from", "", "funding wallet (optional)")
}
