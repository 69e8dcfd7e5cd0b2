package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aiaoyang/rs-ipmi"
)

var sensorCmd = &cobra.Command{
	Use:   "sensor",
	Short: "List sensors from the SDR repository and their current readings",
	RunE:  runSensor,
}

func runSensor(cmd *cobra.Command, _ []string) error {
	ac, err := activate()
	if err != nil {
		return err
	}
	defer ac.Close()

	records, err := ipmi.SDRGetRecordsRepo(ac, func(_ uint16, t ipmi.SDRType) bool {
		return t == ipmi.SDRTypeFullSensor || t == ipmi.SDRTypeCompactSensor
	})
	if err != nil {
		return err
	}

	fmt.Printf("%-16s %-30s %-10s %-10s\n", "NAME", "TYPE", "READING", "UNITS")
	for _, r := range records {
		var lun, num uint8
		switch s := r.(type) {
		case *ipmi.SDRFullSensor:
			lun, num = s.OwnerLUN, s.SensorNumber
		case *ipmi.SDRCompactSensor:
			lun, num = s.OwnerLUN, s.SensorNumber
		}

		gsr := &ipmi.GetSensorReadingCommand{RsLUN: lun, SensorNumber: num}
		var ccErr *ipmi.CompletionCodeError
		sendErr := ac.Send(gsr)
		if sendErr != nil && !errors.As(sendErr, &ccErr) {
			return sendErr
		}

		name, kind, units, reading := "", "", "discrete", "n/a"
		switch s := r.(type) {
		case *ipmi.SDRFullSensor:
			name, kind = s.SensorID(), s.SensorType.String()
			if sendErr == nil && gsr.IsValid() && s.IsAnalogReading() {
				units = s.UnitString()
				reading = fmt.Sprintf("%.2f", s.ConvertSensorReading(gsr.SensorReading))
			}
		case *ipmi.SDRCompactSensor:
			name, kind = s.SensorID(), s.SensorType.String()
		}
		if ccErr != nil {
			reading = ccErr.Code.String()
		}

		fmt.Printf("%-16s %-30s %-10s %-10s\n", name, kind, reading, units)
	}
	return nil
}
