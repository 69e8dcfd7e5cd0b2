package main

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/aiaoyang/rs-ipmi"
)

var rawCmd = &cobra.Command{
	Use:   "raw <netfn> <command> [data-bytes...]",
	Short: "Send an arbitrary IPMI request and print the raw response bytes",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runRaw,
}

func runRaw(cmd *cobra.Command, args []string) error {
	netFn, err := strconv.ParseUint(args[0], 0, 8)
	if err != nil {
		return fmt.Errorf("invalid netfn %q: %w", args[0], err)
	}
	code, err := strconv.ParseUint(args[1], 0, 8)
	if err != nil {
		return fmt.Errorf("invalid command code %q: %w", args[1], err)
	}

	data := make([]byte, 0, len(args)-2)
	for _, a := range args[2:] {
		b, err := strconv.ParseUint(a, 0, 8)
		if err != nil {
			return fmt.Errorf("invalid data byte %q: %w", a, err)
		}
		data = append(data, byte(b))
	}

	ac, err := activate()
	if err != nil {
		return err
	}
	defer ac.Close()

	raw := ipmi.NewRawCommand("Raw", uint8(code), ipmi.NewNetFnRsLUN(ipmi.NetFn(netFn), 0), data)
	if err := ac.Send(raw); err != nil {
		return err
	}
	fmt.Println(hex.EncodeToString(raw.Output()))
	return nil
}
