// Command orcamento prices a job described in a YAML or JSON file without
// running the server.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Simplici0/orcafacil/internal/pricing"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "orcamento",
		Short:        "Calcula orçamentos de comunicação visual",
		SilenceUsage: true,
	}
	root.AddCommand(newCalcularCmd())
	return root
}

type calcularOptions struct {
	file     string
	asJSON   bool
	title    string
	customer string
	currency string
}

func newCalcularCmd() *cobra.Command {
	opts := calcularOptions{}
	cmd := &cobra.Command{
		Use:   "calcular",
		Short: "Calcula o preço a partir de um arquivo YAML ou JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCalcular(cmd.OutOrStdout(), cmd.InOrStdin(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.file, "file", "f", "", "arquivo de entrada (.yaml, .yml ou .json); - lê da entrada padrão")
	flags.BoolVar(&opts.asJSON, "json", false, "imprime o resultado em JSON")
	flags.StringVar(&opts.title, "titulo", "", "título do orçamento")
	flags.StringVar(&opts.customer, "cliente", "", "nome do cliente")
	flags.StringVar(&opts.currency, "moeda", "BRL", "código da moeda")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runCalcular(out io.Writer, stdin io.Reader, opts calcularOptions) error {
	in, err := readInput(opts.file, stdin)
	if err != nil {
		return err
	}

	res, err := pricing.Calculate(in)
	if err != nil {
		return err
	}

	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	return pricing.WriteSummary(out, pricing.SummaryHeader{
		Title:     opts.title,
		Customer:  opts.customer,
		Currency:  opts.currency,
		CreatedAt: time.Now(),
	}, in, res)
}

func readInput(path string, stdin io.Reader) (pricing.Input, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return pricing.Input{}, fmt.Errorf("read input: %w", err)
	}

	var in pricing.Input
	if strings.EqualFold(filepath.Ext(path), ".json") {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&in); err != nil {
			return pricing.Input{}, fmt.Errorf("decode json input: %w", err)
		}
		return in, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&in); err != nil {
		return pricing.Input{}, fmt.Errorf("decode yaml input: %w", err)
	}
	return in, nil
}
