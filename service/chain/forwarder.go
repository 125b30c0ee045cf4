package chain

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// forwarderABI describes the payment forwarding contract: forward re-emits a
// PaymentForwarded event and passes msg.value on to the receiver.
const forwarderABI = `[
	{
		"type": "function",
		"name": "forward",
		"stateMutability": "payable",
		"inputs": [
			{"name": "to", "type": "address"},
			{"name": "memo", "type": "string"}
		],
		"outputs": []
	},
	{
		"type": "event",
		"name": "PaymentForwarded",
		"anonymous": false,
		"inputs": [
			{"name": "from", "type": "address", "indexed": true},
			{"name": "to", "type": "address", "indexed": true},
			{"name": "amount", "type": "uint256", "indexed": false},
			{"name": "memo", "type": "string", "indexed": false}
		]
	}
]`

var forwarder = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(forwarderABI))
	if err != nil {
		panic(err)
	}

	return parsed
}()

func packForward(to common.Address, memo string) ([]byte, error) {
	return forwarder.Pack("forward", to, memo)
}

// PaymentForwarded is the decoded non-indexed part of the forwarder event.
type PaymentForwarded struct {
	Amount *big.Int
	Memo   string
}

func unpackPaymentForwarded(data []byte) (*PaymentForwarded, error) {
	var ev PaymentForwarded
	if err := forwarder.UnpackIntoInterface(&ev, "PaymentForwarded", data); err != nil {
		return nil, err
	}

	return &ev, nil
}

// forwardedMemo finds the PaymentForwarded event emitted by contract in logs.
func forwardedMemo(contract common.Address, logs []*types.Log) (string, bool) {
	id := forwarder.Events["PaymentForwarded"].ID

	for _, l := range logs {
		if l.Address != contract || len(l.Topics) == 0 || l.Topics[0] != id {
			continue
		}

		ev, err := unpackPaymentForwarded(l.Data)
		if err != nil {
			return "", false
		}

		return ev.Memo, true
	}

	return "", false
}
