// Command ethcall encodes, calls, estimates and sends contract methods from
// the command line.
//
// Examples:
//
//	ethcall --rpc http://localhost:8545 --abi ./out/Token.sol/Token.json \
//	    --address 0x5FbD... call balanceOf 0xf39F...
//
//	ETHCALL_KEY=0xac09... ethcall --rpc ws://localhost:8545 --abi token.json \
//	    --address 0x5FbD... send transfer 0x7099... 1000 --confirmations 2
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
