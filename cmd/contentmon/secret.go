package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/eliteGoblin/focusd/content_mon/internal/config"
	"github.com/eliteGoblin/focusd/content_mon/internal/domain"
	"github.com/eliteGoblin/focusd/content_mon/internal/infra"
)

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Manage credentials kept in the encrypted store",
}

var secretSetCmd = &cobra.Command{
	Use:   "set <" + config.SecretSMTPPassword + "|" + config.SecretTelegramToken + ">",
	Short: "Store a credential read from stdin",
	Long: `Reads the value from stdin (without echo on a terminal) and stores it in the
encrypted store. The daemon uses it when the matching field in config.yaml is empty.`,
	Args: cobra.ExactArgs(1),
	RunE: runSecretSet,
}

func init() {
	secretCmd.AddCommand(secretSetCmd)
	rootCmd.AddCommand(secretCmd)
}

// secretNames are the credentials buildAlerts looks up.
var secretNames = []string{config.SecretSMTPPassword, config.SecretTelegramToken}

func runSecretSet(cmd *cobra.Command, args []string) error {
	name := args[0]
	if err := checkSecretName(name); err != nil {
		return err
	}

	value, err := readSecretValue(os.Stdin, name)
	if err != nil {
		return err
	}

	execMode := infra.DetectExecMode()
	if err := os.MkdirAll(execMode.DataDir, 0700); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	store, err := infra.OpenEncryptedStore(execMode.DataDir, infra.DefaultKeyProvider(execMode.DataDir))
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	if err := storeSecret(store, name, value); err != nil {
		return err
	}
	fmt.Printf("Stored %s in %s\n", name, store.Path())
	return nil
}

// readSecretValue prompts without echo when in is a terminal, otherwise it
// reads the first line.
func readSecretValue(in *os.File, name string) (string, error) {
	fd := int(in.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprintf(os.Stderr, "%s: ", name)
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", name, err)
		}
		return string(raw), nil
	}
	return readSecretLine(in)
}

func readSecretLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read secret: %w", err)
	}
	return line, nil
}

func checkSecretName(name string) error {
	for _, n := range secretNames {
		if n == name {
			return nil
		}
	}
	return fmt.Errorf("unknown secret %q (expected one of: %s)", name, strings.Join(secretNames, ", "))
}

// storeSecret validates name, trims the line ending from value and writes it.
func storeSecret(store domain.SecretStore, name, value string) error {
	if err := checkSecretName(name); err != nil {
		return err
	}
	value = strings.TrimRight(value, "\r\n")
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("empty value for %s", name)
	}
	if err := store.SetSecret(name, value); err != nil {
		return fmt.Errorf("failed to store %s: %w", name, err)
	}
	return nil
}
