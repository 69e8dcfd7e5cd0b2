// Command ipmictl talks IPMI v2.0/RMCP+ to a BMC over UDP: list sensors,
// walk the SEL, and issue chassis power control.
package main

func main() {
	Execute()
}
