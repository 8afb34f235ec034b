package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// FlagLoader читает значения с приоритетом явно заданного флага.
// Если флаг не задан, действует обычный порядок viper: env > default.
type FlagLoader struct {
	cmd *cobra.Command
}

func NewFlagLoader(cmd *cobra.Command) *FlagLoader {
	return &FlagLoader{cmd: cmd}
}

func (f *FlagLoader) Changed(flagName string) bool {
	return f.cmd.Flags().Changed(flagName)
}

// String returns CLI flag value if explicitly set, otherwise viper value.
func (f *FlagLoader) String(flagName string) string {
	if f.Changed(flagName) {
		val, _ := f.cmd.Flags().GetString(flagName)
		return val
	}
	return viper.GetString(flagName)
}

// Int returns CLI flag value if explicitly set, otherwise viper value.
func (f *FlagLoader) Int(flagName string) int {
	if f.Changed(flagName) {
		val, _ := f.cmd.Flags().GetInt(flagName)
		return val
	}
	return viper.GetInt(flagName)
}

// Bool returns CLI flag value if explicitly set, otherwise viper value.
func (f *FlagLoader) Bool(flagName string) bool {
	if f.Changed(flagName) {
		val, _ := f.cmd.Flags().GetBool(flagName)
		return val
	}
	return viper.GetBool(flagName)
}

// OverrideString записывает значение флага в dst, только если флаг задан явно.
// Так флаги serve ложатся поверх конфигурации из файла и окружения.
func (f *FlagLoader) OverrideString(flagName string, dst *string) {
	if f.Changed(flagName) {
		*dst, _ = f.cmd.Flags().GetString(flagName)
	}
}

func (f *FlagLoader) OverrideBool(flagName string, dst *bool) {
	if f.Changed(flagName) {
		*dst, _ = f.cmd.Flags().GetBool(flagName)
	}
}
