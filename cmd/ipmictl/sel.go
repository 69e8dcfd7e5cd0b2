package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aiaoyang/rs-ipmi"
)

var selCount int

var selCmd = &cobra.Command{
	Use:   "sel",
	Short: "Print the most recent entries of the system event log",
	RunE:  runSEL,
}

func init() {
	selCmd.Flags().IntVar(&selCount, "count", 10, "number of most recent entries to print")
}

func runSEL(cmd *cobra.Command, _ []string) error {
	ac, err := activate()
	if err != nil {
		return err
	}
	defer ac.Close()

	_, total, err := ipmi.SELGetEntries(ac, 0, 0)
	if err != nil {
		return err
	}

	offset := 0
	if total > selCount {
		offset = total - selCount
	}
	records, total, err := ipmi.SELGetEntries(ac, offset, selCount)
	if err != nil {
		return err
	}

	fmt.Printf("total entries: %d\n", total)
	for _, r := range records {
		switch s := r.(type) {
		case *ipmi.SELEventRecord:
			dir := "asserted"
			if !s.IsAssertionEvent() {
				dir = "deasserted"
			}
			fmt.Printf("%-5d %-25s %-25s(0x%02x) %-10s %s\n",
				s.RecordID, &s.Timestamp, s.SensorType, s.SensorNumber, dir, s.Description())
		case *ipmi.SELTimestampedOEMRecord:
			fmt.Printf("%-5d %-25s oem=0x%08x data=%s\n",
				s.RecordID, &s.Timestamp, s.ManufacturerID, hex.EncodeToString(s.OEMDefined))
		case *ipmi.SELNonTimestampedOEMRecord:
			fmt.Printf("%-5d oem data=%s\n", s.RecordID, hex.EncodeToString(s.OEM))
		}
	}
	return nil
}
