package contract

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// BitBondEscrowABI is the deployed contract's interface: four state-changing
// functions, five views, nine custom errors and four events.
const BitBondEscrowABI = `[
	{"inputs":[],"name":"AlreadyReleased","type":"error"},
	{"inputs":[],"name":"DeadlineMustBeFuture","type":"error"},
	{"inputs":[],"name":"DeadlineNotPassed","type":"error"},
	{"inputs":[],"name":"EscrowNotActive","type":"error"},
	{"inputs":[],"name":"InvalidAddress","type":"error"},
	{"inputs":[],"name":"InvalidAmount","type":"error"},
	{"inputs":[],"name":"OnlyClient","type":"error"},
	{"inputs":[],"name":"OnlyFreelancer","type":"error"},
	{"inputs":[],"name":"ReentrantCall","type":"error"},
	{"anonymous":false,"inputs":[
		{"indexed":true,"internalType":"uint256","name":"id","type":"uint256"},
		{"indexed":true,"internalType":"address","name":"raisedBy","type":"address"}
	],"name":"DisputeRaised","type":"event"},
	{"anonymous":false,"inputs":[
		{"indexed":true,"internalType":"uint256","name":"id","type":"uint256"},
		{"indexed":true,"internalType":"address","name":"client","type":"address"},
		{"indexed":false,"internalType":"uint256","name":"amount","type":"uint256"}
	],"name":"EscrowRefunded","type":"event"},
	{"anonymous":false,"inputs":[
		{"indexed":true,"internalType":"uint256","name":"id","type":"uint256"},
		{"indexed":true,"internalType":"address","name":"client","type":"address"},
		{"indexed":true,"internalType":"address","name":"freelancer","type":"address"},
		{"indexed":false,"internalType":"uint256","name":"amount","type":"uint256"},
		{"indexed":false,"internalType":"uint256","name":"deadline","type":"uint256"},
		{"indexed":false,"internalType":"string","name":"description","type":"string"}
	],"name":"EscrowCreated","type":"event"},
	{"anonymous":false,"inputs":[
		{"indexed":true,"internalType":"uint256","name":"id","type":"uint256"},
		{"indexed":true,"internalType":"address","name":"freelancer","type":"address"},
		{"indexed":false,"internalType":"uint256","name":"amount","type":"uint256"}
	],"name":"FundsReleased","type":"event"},
	{"inputs":[
		{"internalType":"address","name":"freelancer","type":"address"},
		{"internalType":"string","name":"description","type":"string"},
		{"internalType":"uint256","name":"deadline","type":"uint256"}
	],"name":"createEscrow","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"payable","type":"function"},
	{"inputs":[{"internalType":"uint256","name":"escrowId","type":"uint256"}],"name":"releaseFunds","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"internalType":"uint256","name":"escrowId","type":"uint256"}],"name":"raiseDispute","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"internalType":"uint256","name":"escrowId","type":"uint256"}],"name":"refundAfterDeadline","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"internalType":"uint256","name":"escrowId","type":"uint256"}],"name":"getEscrow","outputs":[{"components":[
		{"internalType":"uint256","name":"id","type":"uint256"},
		{"internalType":"address","name":"client","type":"address"},
		{"internalType":"address","name":"freelancer","type":"address"},
		{"internalType":"uint256","name":"amount","type":"uint256"},
		{"internalType":"string","name":"description","type":"string"},
		{"internalType":"uint256","name":"deadline","type":"uint256"},
		{"internalType":"uint8","name":"status","type":"uint8"},
		{"internalType":"uint256","name":"createdAt","type":"uint256"},
		{"internalType":"string","name":"txHash","type":"string"}
	],"internalType":"struct BitBondEscrow.Escrow","name":"","type":"tuple"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"internalType":"address","name":"client","type":"address"}],"name":"getClientEscrows","outputs":[{"internalType":"uint256[]","name":"","type":"uint256[]"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"internalType":"address","name":"freelancer","type":"address"}],"name":"getFreelancerEscrows","outputs":[{"internalType":"uint256[]","name":"","type":"uint256[]"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"escrowCounter","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"getEscrowCount","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

// ParseABI returns the parsed BitBondEscrow ABI. The constant is known-good,
// so a parse failure is a programming error.
func ParseABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(BitBondEscrowABI))
}

func MustParseABI() abi.ABI {
	parsed, err := ParseABI()
	if err != nil {
		panic(err)
	}
	return parsed
}
