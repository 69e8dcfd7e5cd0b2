package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aiaoyang/rs-ipmi"
)

var sdrCmd = &cobra.Command{
	Use:   "sdr",
	Short: "Dump the raw sensor data repository",
	RunE:  runSDR,
}

func runSDR(cmd *cobra.Command, _ []string) error {
	ac, err := activate()
	if err != nil {
		return err
	}
	defer ac.Close()

	records, err := ipmi.SDRGetAllRecordsRepo(ac)
	if err != nil {
		return err
	}

	for _, r := range records {
		fmt.Printf("id=0x%04x type=0x%02x data=%s\n", r.ID(), r.Type(), hex.EncodeToString(r.Data()))
	}
	return nil
}
