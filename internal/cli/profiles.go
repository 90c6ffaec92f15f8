package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/loopcost/internal/hwconfig"
)

// ProfileSummary describes one built-in hardware profile.
type ProfileSummary struct {
	Name           string  `json:"name"`
	Levels         int     `json:"levels"`
	ClockFrequency float64 `json:"clock_frequency"`
	Hash           string  `json:"hash"`
}

// NewProfilesCommand creates the profiles command.
func NewProfilesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profiles [name|file]",
		Short: "List hardware profiles or show one",
		Long: `Without arguments, list the built-in hardware profiles.

With a profile name or a hardware file, print the full configuration in
the YAML form accepted by --hardware.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return runShowProfile(rootOpts, args[0], cmd)
			}
			return runListProfiles(rootOpts, cmd)
		},
	}

	return cmd
}

func runListProfiles(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	names := hwconfig.ProfileNames()
	summaries := make([]ProfileSummary, 0, len(names))
	for _, name := range names {
		c, _ := hwconfig.Profile(name)
		hash, err := c.Hash()
		if err != nil {
			return outputLoadError(formatter, err)
		}
		summaries = append(summaries, ProfileSummary{
			Name:           name,
			Levels:         c.Levels(),
			ClockFrequency: c.ClockFrequency,
			Hash:           hash,
		})
	}

	return formatter.Render(summaries, func(w io.Writer) error {
		rows := make([][]string, len(summaries))
		for i, s := range summaries {
			rows[i] = []string{
				s.Name,
				strconv.Itoa(s.Levels),
				strconv.FormatFloat(s.ClockFrequency/1e9, 'f', -1, 64) + " GHz",
				s.Hash[:12],
			}
		}
		return writeTable(w, []string{"NAME", "LEVELS", "CLOCK", "HASH"}, rows)
	})
}

func runShowProfile(opts *RootOptions, name string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	c, err := resolveHardware(name, nil)
	if err != nil {
		return outputLoadError(formatter, err)
	}

	return formatter.Render(c, func(w io.Writer) error {
		data, err := yaml.Marshal(c)
		if err != nil {
			return fmt.Errorf("marshal hardware: %w", err)
		}
		_, err = w.Write(data)
		return err
	})
}
