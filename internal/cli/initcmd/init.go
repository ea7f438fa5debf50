// Package initcmd implements the 'init' command, which scaffolds a
// cinnabar.toml in the current directory.
package initcmd

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/duskfell/cinnabar-go/internal/core/config"
	"github.com/duskfell/cinnabar-go/internal/core/project"
)

// promptWithDefault prompts the user and reads one line, falling back to the
// default value on empty input.
func promptWithDefault(reader *bufio.Reader, promptText string, defaultValue string) (string, error) {
	if defaultValue != "" {
		fmt.Printf("%s (default: %s): ", promptText, defaultValue)
	} else {
		fmt.Printf("%s: ", promptText)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read input for '%s': %w", promptText, err)
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return defaultValue, nil
	}
	return input, nil
}

// GetInitCommand returns the definition for the "init" command.
func GetInitCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Initialize a new cinnabar project (creates cinnabar.toml)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Usage: "Package name"},
			&cli.StringFlag{Name: "version", Usage: "Package version", Value: "0.1.0"},
			&cli.StringFlag{Name: "source", Usage: "Source directory", Value: "src"},
			&cli.StringFlag{Name: "vendor", Usage: "Vendored dependency directory", Value: "vendor"},
			&cli.StringFlag{Name: "output", Usage: "Archive output path"},
			&cli.BoolFlag{Name: "precompile", Usage: "Enable bytecode generation"},
			&cli.BoolFlag{
				Name:    "yes",
				Aliases: []string{"y"},
				Usage:   "Accept flag/default values without prompting",
			},
			&cli.BoolFlag{Name: "force", Usage: "Overwrite an existing cinnabar.toml"},
		},
		Action: func(c *cli.Context) error {
			existingPath := filepath.Join(".", config.ProjectTomlName)
			if _, err := os.Stat(existingPath); err == nil && !c.Bool("force") {
				return cli.Exit(fmt.Sprintf("Error: %s already exists. Use --force to overwrite.", config.ProjectTomlName), 1)
			}

			defaultName := c.String("name")
			if defaultName == "" {
				if wd, err := os.Getwd(); err == nil {
					defaultName = filepath.Base(wd)
				} else {
					defaultName = "my-cinnabar-project"
				}
			}
			defaultOutput := c.String("output")
			if defaultOutput == "" {
				defaultOutput = filepath.Join("dist", defaultName+".zip")
			}

			name := defaultName
			version := c.String("version")
			source := c.String("source")
			vendor := c.String("vendor")
			output := defaultOutput
			precompile := c.Bool("precompile")

			if !c.Bool("yes") {
				fmt.Println("Starting project initialization...")
				reader := bufio.NewReader(os.Stdin)
				var err error

				name, err = promptWithDefault(reader, "Package name", defaultName)
				if err != nil {
					return cli.Exit(err.Error(), 1)
				}
				version, err = promptWithDefault(reader, "Version", version)
				if err != nil {
					return cli.Exit(err.Error(), 1)
				}
				source, err = promptWithDefault(reader, "Source directory", source)
				if err != nil {
					return cli.Exit(err.Error(), 1)
				}
				vendor, err = promptWithDefault(reader, "Vendor directory", vendor)
				if err != nil {
					return cli.Exit(err.Error(), 1)
				}
				output, err = promptWithDefault(reader, "Archive output path", defaultOutput)
				if err != nil {
					return cli.Exit(err.Error(), 1)
				}
				precompileAnswer, err := promptWithDefault(reader, "Precompile bytecode? (y/N)", "n")
				if err != nil {
					return cli.Exit(err.Error(), 1)
				}
				precompile = strings.EqualFold(strings.TrimSpace(precompileAnswer), "y")
			}

			proj := project.New()
			proj.Package.Name = name
			proj.Package.Version = version
			proj.Build.Source = source
			proj.Build.Vendor = vendor
			proj.Build.Output = output
			proj.Build.Precompile = precompile

			if err := proj.Validate(); err != nil {
				return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
			}
			if err := config.WriteProjectToml(".", proj); err != nil {
				return cli.Exit(fmt.Sprintf("Error writing %s: %v", config.ProjectTomlName, err), 1)
			}

			fmt.Printf("Created %s for package '%s'.\n", config.ProjectTomlName, name)
			return nil
		},
	}
}
