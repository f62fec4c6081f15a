// Copyright (C) 2024 Toitware ApS. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package commands

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/toitlang/bptools/cmd/bp/directory"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

const (
	// USB ids of the Bus Pirate 5 and later.
	busPirateVID = "1209"
	busPiratePID = "7331"
)

func PortCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "port",
		Short: "List serial ports and select the default one",
	}
	cmd.AddCommand(
		PortListCmd(),
		PortSetCmd(),
	)
	return cmd
}

type portInfo struct {
	Name      string `mapstructure:"name" yaml:"name" json:"name"`
	BusPirate bool   `mapstructure:"bus_pirate" yaml:"bus_pirate" json:"bus_pirate"`
	VID       string `mapstructure:"vid" yaml:"vid,omitempty" json:"vid,omitempty"`
	PID       string `mapstructure:"pid" yaml:"pid,omitempty" json:"pid,omitempty"`
	Serial    string `mapstructure:"serial" yaml:"serial,omitempty" json:"serial,omitempty"`
	Product   string `mapstructure:"product" yaml:"product,omitempty" json:"product,omitempty"`
}

func (p portInfo) Short() string {
	return p.Name
}

type portList []portInfo

func (l portList) Elements() []Short {
	res := make([]Short, len(l))
	for i, p := range l {
		res[i] = p
	}
	return res
}

func PortListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "list",
		Short:        "List the available serial ports",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			all, err := cmd.Flags().GetBool("all")
			if err != nil {
				return err
			}
			enc, err := parseOutputFlag(cmd)
			if err != nil {
				return err
			}
			ports, err := listPorts(all)
			if err != nil {
				return err
			}
			return enc.Encode(ports)
		},
	}
	cmd.Flags().Bool("all", false, "if set, will show all available ports")
	addOutputFlag(cmd.Flags(), "short")
	return cmd
}

func PortSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "set [port]",
		Short:        "Select the serial port you want to use",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			all, err := cmd.Flags().GetBool("all")
			if err != nil {
				return err
			}

			cfg, err := directory.GetUserConfig()
			if err != nil {
				return err
			}

			if len(args) == 1 {
				cfg.Set(directory.PortKey, args[0])
				return directory.WriteConfig(cfg)
			}
			_, err = GetPort(cfg, all, true)
			return err
		},
	}

	cmd.Flags().Bool("all", false, "if set, will show all available ports")
	return cmd
}

func listPorts(all bool) (portList, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}
	var res portList
	var names []string
	byName := map[string]portInfo{}
	for _, d := range details {
		info := portInfo{Name: d.Name}
		if d.IsUSB {
			info.VID = strings.ToLower(d.VID)
			info.PID = strings.ToLower(d.PID)
			info.Serial = d.SerialNumber
			info.Product = d.Product
			info.BusPirate = info.VID == busPirateVID && info.PID == busPiratePID
		}
		names = append(names, d.Name)
		byName[d.Name] = info
	}
	if !all {
		names = filterPorts(names)
	}
	for _, name := range names {
		res = append(res, byName[name])
	}
	return res, nil
}

func PortExists(port string) (bool, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return false, err
	}
	for _, p := range ports {
		if p == port {
			return true, nil
		}
	}
	return false, nil
}

func ConfiguredPort() string {
	cfg, err := directory.GetUserConfig()
	if err != nil {
		return ""
	}
	return cfg.GetString(directory.PortKey)
}

func CheckPort(port string) (string, error) {
	if port != "" {
		exists, err := PortExists(port)
		if err != nil {
			return "", err
		}
		if exists {
			return port, nil
		}
	}

	cfg, err := directory.GetUserConfig()
	if err != nil {
		return "", err
	}

	return GetPort(cfg, false, true)
}

// GetPort returns the configured port, or lets the user pick one and stores
// it when pick is set.
func GetPort(cfg *viper.Viper, all bool, pick bool) (string, error) {
	if !pick {
		if port := cfg.GetString(directory.PortKey); port != "" {
			return port, nil
		}
	}
	if !isInteractive() {
		return "", fmt.Errorf("no usable serial port configured, use 'bp port set <port>'")
	}
	port, err := pickPort(all)
	if err != nil {
		return "", err
	}
	cfg.Set(directory.PortKey, port)
	if err := directory.WriteConfig(cfg); err != nil {
		return "", err
	}
	return port, nil
}

func pickPort(all bool) (string, error) {
	ports, err := listPorts(all)
	if err != nil {
		return "", err
	}
	if len(ports) == 0 {
		return "", fmt.Errorf("no serial ports detected. Is the Bus Pirate connected?")
	}

	items := make([]string, len(ports))
	for i, p := range ports {
		items[i] = p.Name
		if p.BusPirate {
			items[i] += " (Bus Pirate)"
		}
	}
	prompt := promptui.Select{
		Label:     "Choose what serial port you want to use",
		Items:     items,
		Templates: &promptui.SelectTemplates{},
	}

	i, _, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("you didn't select anything")
	}

	return ports[i].Name, nil
}

func filterPorts(ports []string) []string {
	switch runtime.GOOS {
	case "darwin":
		return darwinFilterPaths(ports)
	case "linux":
		return linuxFilterPaths(ports)
	default:
		return ports
	}
}

func darwinFilterPaths(paths []string) []string {
	existing := map[string]struct{}{}
	for _, p := range paths {
		existing[p] = struct{}{}
	}
	var res []string
	for _, path := range paths {
		if strings.HasPrefix(path, "/dev/cu") && !strings.Contains(path, "Bluetooth") {
			res = append(res, path)
		} else if strings.HasPrefix(path, "/dev/tty") && !strings.Contains(path, "Bluetooth") {
			candidate := "/dev/cu" + strings.TrimPrefix(path, "/dev/tty")
			if _, exists := existing[candidate]; !exists {
				res = append(res, path)
			}
		}
	}
	return res
}

// The Bus Pirate enumerates as two CDC ACM ports, the terminal and BPIO.
func linuxFilterPaths(paths []string) []string {
	res := []string(nil)
	for _, path := range paths {
		if strings.Contains(path, "tty") {
			if strings.Contains(path, "USB") || strings.Contains(path, "ACM") {
				res = append(res, path)
			}
		}
	}
	return res
}
