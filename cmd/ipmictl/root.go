package main

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aiaoyang/rs-ipmi"
	"github.com/aiaoyang/rs-ipmi/internal/config"
)

var (
	cfgFile       string
	targetName    string
	address       string
	username      string
	password      string
	privilege     string
	cipherSuiteID uint
	readTimeout   time.Duration
	retries       uint
	autoReconnect bool
	debug         bool
)

var rootCmd = &cobra.Command{
	Use:   "ipmictl",
	Short: "Query and control a BMC over IPMI v2.0/RMCP+",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "path to a targets YAML file")
	pf.StringVar(&targetName, "target", "", "named target from --config to use")
	pf.StringVar(&address, "address", "", "BMC address, host:port")
	pf.StringVar(&username, "user", "", "BMC username")
	pf.StringVar(&password, "pass", "", "BMC password")
	pf.StringVar(&privilege, "privilege", "administrator", "requested session privilege level")
	pf.UintVar(&cipherSuiteID, "cipher-suite", 3, "RMCP+ cipher suite ID")
	pf.DurationVar(&readTimeout, "read-timeout", 20*time.Second, "per-request round trip deadline")
	pf.UintVar(&retries, "retries", 1, "retries on timeout")
	pf.BoolVar(&autoReconnect, "auto-reconnect", false, "re-authenticate automatically if the session drops")
	pf.BoolVar(&debug, "debug", false, "enable debug logging")

	for _, name := range []string{"config", "target", "address", "user", "pass", "privilege", "cipher-suite", "read-timeout", "retries", "auto-reconnect", "debug"} {
		_ = viper.BindPFlag(name, pf.Lookup(name))
	}
	viper.SetEnvPrefix("ipmictl")
	viper.AutomaticEnv()

	rootCmd.AddCommand(sensorCmd, sdrCmd, selCmd, chassisCmd, rawCmd)
}

func privilegeLevel(name string) (ipmi.PrivilegeLevel, error) {
	switch name {
	case "callback":
		return ipmi.PrivilegeCallback, nil
	case "user":
		return ipmi.PrivilegeUser, nil
	case "operator":
		return ipmi.PrivilegeOperator, nil
	case "administrator", "":
		return ipmi.PrivilegeAdministrator, nil
	default:
		return 0, fmt.Errorf("unknown privilege level %q", name)
	}
}

// resolveArguments merges the --target entry from --config (if any)
// with command-line flags, which always win over the config file.
func resolveArguments() (ipmi.Arguments, error) {
	args := ipmi.Arguments{
		Version:       ipmi.V2_0,
		Address:       viper.GetString("address"),
		Username:      viper.GetString("user"),
		Password:      viper.GetString("pass"),
		CipherSuiteID: viper.GetUint("cipher-suite"),
		ReadTimeout:   viper.GetDuration("read-timeout"),
		Retries:       viper.GetUint("retries"),
		AutoReconnect: viper.GetBool("auto-reconnect"),
	}

	if cfgFile != "" && targetName != "" {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return ipmi.Arguments{}, err
		}
		target, ok := cfg.Find(targetName)
		if !ok {
			return ipmi.Arguments{}, fmt.Errorf("no target named %q in %s", targetName, cfgFile)
		}
		if args.Address == "" {
			args.Address = target.Address
		}
		if args.Username == "" {
			args.Username = target.Username
		}
		if args.Password == "" {
			args.Password = target.Password
		}
		pf := rootCmd.PersistentFlags()
		if target.CipherSuiteID != 0 && !pf.Changed("cipher-suite") {
			args.CipherSuiteID = target.CipherSuiteID
		}
		if target.ReadTimeout != 0 && !pf.Changed("read-timeout") {
			args.ReadTimeout = target.ReadTimeout
		}
		if target.Retries != 0 && !pf.Changed("retries") {
			args.Retries = target.Retries
		}
		if !pf.Changed("auto-reconnect") {
			args.AutoReconnect = args.AutoReconnect || target.AutoReconnect
		}
		if !pf.Changed("privilege") && target.PrivilegeName != "" {
			privilege = target.PrivilegeName
		}
	}

	priv, err := privilegeLevel(viper.GetString("privilege"))
	if err != nil {
		return ipmi.Arguments{}, err
	}
	args.PrivilegeLevel = priv

	log := ipmi.NewLogger()
	if viper.GetBool("debug") {
		log.SetLevel(logrus.DebugLevel)
	}
	args.Logger = log

	return args, nil
}

// activate opens a BMC session using the merged CLI/config arguments.
func activate() (*ipmi.ActiveClient, error) {
	args, err := resolveArguments()
	if err != nil {
		return nil, err
	}
	if args.Address == "" {
		return nil, fmt.Errorf("--address (or --config/--target) is required")
	}

	c, err := ipmi.NewClient(args)
	if err != nil {
		return nil, err
	}
	return c.Activate()
}
