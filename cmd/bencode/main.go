package main

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/chihaya/bencode/bencode"
	"github.com/chihaya/bencode/pkg/log"
)

// PreRunCmdFunc handles command line flags for the root command.
func PreRunCmdFunc(cmd *cobra.Command, args []string) error {
	debugLog, err := cmd.Flags().GetBool("debug")
	if err != nil {
		return err
	}
	if debugLog {
		log.SetDebug(true)
		log.Debug("debug logging enabled")
	}

	jsonLog, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	if jsonLog {
		log.SetFormatter(&logrus.JSONFormatter{})
		log.Info("enabled JSON logging")
	}

	return nil
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "bencode",
		Short:             "Strict bencode tooling",
		Long:              "Decode, canonicalize and serve bencoded documents and torrents",
		PersistentPreRunE: PreRunCmdFunc,
		SilenceUsage:      true,
	}

	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().Bool("json", false, "enable json logging")

	decodeCmd := &cobra.Command{
		Use:   "decode FILE",
		Short: "print the structure of a bencoded file",
		Args:  cobra.ExactArgs(1),
		RunE:  DecodeCmdFunc,
	}

	canonicalizeCmd := &cobra.Command{
		Use:   "canonicalize FILE",
		Short: "write the canonical encoding of a bencoded file to stdout",
		Args:  cobra.ExactArgs(1),
		RunE:  CanonicalizeCmdFunc,
	}
	canonicalizeCmd.Flags().Bool("check", false, "only verify that the file is canonical")

	infohashCmd := &cobra.Command{
		Use:   "infohash FILE",
		Short: "print the infohash of a torrent file",
		Args:  cobra.ExactArgs(1),
		RunE:  InfohashCmdFunc,
	}

	for _, cmd := range []*cobra.Command{decodeCmd, canonicalizeCmd, infohashCmd} {
		cmd.Flags().Int("max-depth", bencode.DefaultMaxDepth, "maximum nesting depth, 0 for unlimited")
		cmd.Flags().Int("max-size", 0, "maximum input size in bytes, 0 for unlimited")
		rootCmd.AddCommand(cmd)
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "serve the HTTP frontend",
		Args:  cobra.NoArgs,
		RunE:  ServeCmdFunc,
	}
	serveCmd.Flags().String("config", "/etc/bencode.yaml", "location of configuration file")
	rootCmd.AddCommand(serveCmd)

	e2eCmd := &cobra.Command{
		Use:   "e2e",
		Short: "exercise a running HTTP frontend",
		Long:  "Store, fetch and delete a generated torrent on a running HTTP frontend",
		Args:  cobra.NoArgs,
		RunE:  EndToEndRunCmdFunc,
	}
	e2eCmd.Flags().String("httpaddr", "http://127.0.0.1:6880", "address of the HTTP frontend")
	e2eCmd.Flags().Duration("delay", time.Second, "delay between storing and fetching the torrent")
	rootCmd.AddCommand(e2eCmd)

	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatal("failed when executing root cobra command", log.Err(err))
	}
}
