package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/wire"
	"github.com/pandodao/generic"
	"github.com/pandodao/paybridge/core"
	"github.com/pandodao/paybridge/service/backend"
	"github.com/pandodao/paybridge/service/chain"
	"github.com/pandodao/paybridge/service/custodian"
	"github.com/pandodao/paybridge/service/identity"
	"github.com/pandodao/paybridge/service/ledger"
	"github.com/pandodao/paybridge/service/payment"
	"github.com/pandodao/paybridge/service/vault"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

var serviceSet = wire.NewSet(
	provideVault,
	wire.Bind(new(core.Vault), new(*vault.Vault)),
	provideBackendClient,
	identity.New,
	provideLedgerConfig,
	ledger.New,
	wire.Bind(new(core.LedgerService), new(*ledger.Service)),
	provideChainClient,
	provideChainConfig,
	chain.New,
	wire.Bind(new(core.ChainService), new(*chain.Service)),
	provideCustodians,
	wire.Bind(new(core.CustodianService), new(*custodian.Service)),
	providePaymentConfig,
	payment.New,
	wire.Bind(new(core.PaymentService), new(*payment.Service)),
)

func provideVault(v *viper.Viper, wallets core.WalletStore, properties core.PropertyStore, logger *slog.Logger) (*vault.Vault, error) {
	key, err := vault.ParseKey(v.GetString("vault.key"))
	if err != nil {
		return nil, err
	}

	if err := vault.CheckFingerprint(context.Background(), properties, key); err != nil {
		return nil, err
	}

	return vault.New(wallets, key, logger), nil
}

func provideBackendClient(v *viper.Viper) *resty.Client {
	return backend.New(backend.Config{
		Endpoint: v.GetString("backend.endpoint"),
		Timeout:  v.GetDuration("backend.timeout"),
		Token:    v.GetString("backend.token"),
	})
}

func provideLedgerConfig(v *viper.Viper) ledger.Config {
	v.SetDefault("ledger.currency", "ETH")
	v.SetDefault("ledger.network_mode", "local")

	return ledger.Config{
		Currency:    v.GetString("ledger.currency"),
		NetworkMode: v.GetString("ledger.network_mode"),
	}
}

func provideChainClient(v *viper.Viper) (chain.Client, func(), error) {
	v.SetDefault("chain.rpc", "http://127.0.0.1:8545")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := chain.Dial(ctx, v.GetString("chain.rpc"))
	if err != nil {
		return nil, nil, err
	}

	return client, client.Close, nil
}

func provideChainConfig(v *viper.Viper) chain.Config {
	return chain.Config{
		ChainID:   v.GetInt64("chain.id"),
		Forwarder: v.GetString("chain.forwarder"),
		GasLimit:  v.GetUint64("chain.gas_limit"),
	}
}

func provideCustodians(v *viper.Viper, chains core.ChainService, vaults core.Vault, logger *slog.Logger) (*custodian.Service, error) {
	s := custodian.New(chains, vaults, logger, custodian.Config{
		Keys:      v.GetStringSlice("custodian.keys"),
		Addresses: v.GetStringSlice("custodian.addresses"),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.Init(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

func providePaymentConfig(v *viper.Viper) payment.Config {
	v.SetDefault("payment.max_amount", "100")
	v.SetDefault("payment.max_memo_length", 256)
	v.SetDefault("faucet.max_amount", "10")

	return payment.Config{
		MaxAmount:       generic.Try(decimal.NewFromString(v.GetString("payment.max_amount"))),
		FaucetMaxAmount: generic.Try(decimal.NewFromString(v.GetString("faucet.max_amount"))),
		MaxMemoLength:   v.GetInt("payment.max_memo_length"),
		FaucetMemo:      v.GetString("faucet.memo"),
	}
}
