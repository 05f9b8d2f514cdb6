package cmd

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kgpp34/Redis-Source-Learning/internal/common"
	"github.com/kgpp34/Redis-Source-Learning/internal/resp"
	"github.com/kgpp34/Redis-Source-Learning/pkg/parser"
)

var (
	cliAddr string
)

var cliCmd = &cobra.Command{
	Use:   "cli [command args...]",
	Short: "Start a CLI client to connect to goredis server",
	Long:  "Without arguments starts an interactive prompt, otherwise sends one command and prints the reply.",
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := net.Dial("tcp", cliAddr)
		if err != nil {
			return fmt.Errorf("failed to connect to %s: %w", cliAddr, err)
		}
		defer conn.Close()

		c := &cliClient{conn: conn, parser: parser.NewParser(conn), out: cmd.OutOrStdout()}
		if len(args) > 0 {
			argv := make([][]byte, len(args))
			for i, a := range args {
				argv[i] = []byte(a)
			}
			return c.roundTrip(argv)
		}
		return c.repl(cmd.InOrStdin())
	},
}

func init() {
	cliCmd.Flags().StringVar(&cliAddr, "addr", "127.0.0.1:6379", "server address to connect to")
	rootCmd.AddCommand(cliCmd)
}

type cliClient struct {
	conn   net.Conn
	parser *parser.Parser
	out    io.Writer
}

// repl 交互模式，参数支持和 redis-cli 一样的引号转义
func (c *cliClient) repl(in io.Reader) error {
	stdin := bufio.NewReader(in)
	for {
		fmt.Fprintf(c.out, "%s> ", cliAddr)
		line, err := stdin.ReadString('\n')
		if err == io.EOF && line == "" {
			return nil
		}
		if err != nil && err != io.EOF {
			return fmt.Errorf("read input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" {
			return nil
		}

		args, err := resp.SplitArgs([]byte(line))
		if err != nil {
			fmt.Fprintln(c.out, "Invalid argument(s)")
			continue
		}
		if len(args) == 0 {
			continue
		}
		if err := c.roundTrip(args); err != nil {
			return err
		}
		if strings.EqualFold(string(args[0]), "quit") {
			return nil
		}
	}
}

func (c *cliClient) roundTrip(args [][]byte) error {
	if _, err := c.conn.Write(resp.EncodeCommand(args)); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	payload, err := c.parser.Parse()
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	fmt.Fprintln(c.out, common.FormatReply(payload))
	return nil
}
