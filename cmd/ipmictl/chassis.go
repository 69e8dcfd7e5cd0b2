package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aiaoyang/rs-ipmi"
)

var chassisCmd = &cobra.Command{
	Use:   "chassis",
	Short: "Read or control chassis power state",
}

var chassisStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the current chassis power status",
	RunE:  runChassisStatus,
}

var chassisPowerCmd = &cobra.Command{
	Use:       "power [on|off|cycle|reset|diag|soft]",
	Short:     "Send a Chassis Control command",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "off", "cycle", "reset", "diag", "soft"},
	RunE:      runChassisPower,
}

func init() {
	chassisCmd.AddCommand(chassisStatusCmd, chassisPowerCmd)
}

func runChassisStatus(cmd *cobra.Command, _ []string) error {
	ac, err := activate()
	if err != nil {
		return err
	}
	defer ac.Close()

	gcs := &ipmi.GetChassisStatusCommand{}
	if err := ac.Send(gcs); err != nil {
		return err
	}

	state := "off"
	if gcs.PowerIsOn {
		state = "on"
	}
	fmt.Printf("power: %s\n", state)
	fmt.Printf("overload=%v interlock=%v fault=%v\n", gcs.PowerOverload, gcs.PowerInterlock, gcs.PowerFault)
	return nil
}

func runChassisPower(cmd *cobra.Command, args []string) error {
	var control ipmi.ChassisControl
	switch args[0] {
	case "off":
		control = ipmi.ChassisControlPowerDown
	case "on":
		control = ipmi.ChassisControlPowerUp
	case "cycle":
		control = ipmi.ChassisControlPowerCycle
	case "reset":
		control = ipmi.ChassisControlHardReset
	case "diag":
		control = ipmi.ChassisControlPulseDiag
	case "soft":
		control = ipmi.ChassisControlSoftShutdown
	default:
		return fmt.Errorf("unknown power action %q", args[0])
	}

	ac, err := activate()
	if err != nil {
		return err
	}
	defer ac.Close()

	if err := ac.Send(ipmi.NewChassisControlCommand(control)); err != nil {
		return err
	}
	fmt.Printf("chassis control %s sent\n", control)
	return nil
}
