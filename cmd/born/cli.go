package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/born-ml/param/internal/backend/cpu"
	"github.com/born-ml/param/internal/envconfig"
	"github.com/born-ml/param/internal/nn"
	"github.com/born-ml/param/internal/serialization"
	"github.com/born-ml/param/internal/tensor"
)

const version = "v" + serialization.LibraryVersion

func appendEnvDocs(cmd *cobra.Command, envs []envconfig.EnvVar) {
	if len(envs) == 0 {
		return
	}

	envUsage := `
Environment Variables:
`
	for _, e := range envs {
		envUsage += fmt.Sprintf("      %-24s   %s\n", e.Name, e.Description)
	}

	cmd.SetUsageTemplate(cmd.UsageTemplate() + envUsage)
}

// NewCLI builds the root command with every subcommand attached.
func NewCLI() *cobra.Command {
	cobra.EnableCommandSorting = false

	rootCmd := &cobra.Command{
		Use:           "born",
		Short:         "Inspect Born model files and parameters",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: envconfig.LogLevel()})
			slog.SetDefault(slog.New(handler))
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Print(cmd.UsageString())
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "born version %s\n", version)
		},
	}

	inspectCmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Show the header and tensors of a .born file",
		Args:  cobra.ExactArgs(1),
		RunE:  InspectHandler,
	}

	paramCmd := &cobra.Command{
		Use:   "param FILE",
		Short: "Decode a pickled parameter and print it",
		Args:  cobra.ExactArgs(1),
		RunE:  ParamHandler,
	}
	paramCmd.Flags().Bool("legacy", false, "Decode the three-argument recipe that carries no tags")

	exportCmd := &cobra.Command{
		Use:   "export-param FILE NAME",
		Short: "Pickle one tensor of a .born file as a parameter",
		Args:  cobra.ExactArgs(2),
		RunE:  ExportParamHandler,
	}
	exportCmd.Flags().StringP("output", "o", "", "Output file (default: NAME.pkl)")
	exportCmd.Flags().StringArray("tag", nil, "Attach a tag as key=value (repeatable)")

	envVars := envconfig.AsMap()
	for _, cmd := range []*cobra.Command{inspectCmd, exportCmd} {
		appendEnvDocs(cmd, []envconfig.EnvVar{
			envVars["BORN_DEBUG"],
			envVars["BORN_VALIDATION"],
			envVars["BORN_SKIP_CHECKSUM"],
		})
	}
	appendEnvDocs(paramCmd, []envconfig.EnvVar{envVars["BORN_DEBUG"]})

	rootCmd.AddCommand(
		versionCmd,
		inspectCmd,
		paramCmd,
		exportCmd,
	)

	return rootCmd
}

// InspectHandler prints the header, tensors and checkpoint details of a .born file.
func InspectHandler(cmd *cobra.Command, args []string) error {
	reader, err := serialization.NewBornReader(args[0])
	if err != nil {
		return err
	}
	defer func() {
		_ = reader.Close()
	}()

	slog.Debug("opened model file", "path", args[0], "version", reader.Version(), "flags", reader.Flags())
	return showHeader(reader, cmd.OutOrStdout())
}

func showHeader(reader *serialization.BornReader, w io.Writer) error {
	header := reader.Header()

	tableRender := func(title string, rows [][]string, columns ...string) {
		fmt.Fprintln(w, " ", title)
		table := tablewriter.NewWriter(w)
		if len(columns) > 0 {
			table.SetHeader(columns)
			table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
			table.SetHeaderLine(false)
		}
		table.SetAlignment(tablewriter.ALIGN_LEFT)
		table.SetBorder(false)
		table.SetNoWhiteSpace(true)
		table.SetTablePadding("    ")
		table.AppendBulk(rows)
		table.Render()
		fmt.Fprintln(w)
	}

	file := [][]string{
		{"", "format", strconv.FormatUint(uint64(reader.Version()), 10)},
		{"", "library", header.BornVersion},
		{"", "model", header.ModelType},
		{"", "created", header.CreatedAt.Format("2006-01-02 15:04:05 MST")},
	}
	if reader.Version() >= serialization.FormatVersionV2 {
		file = append(file, []string{"", "sha256", reader.Checksum().String()})
	}
	tableRender("File", file)

	var rows [][]string
	for _, name := range reader.TensorNames() {
		meta, err := reader.TensorInfo(name)
		if err != nil {
			return err
		}
		grad := "-"
		if meta.IsParameter() {
			grad = strconv.FormatBool(*meta.RequiresGrad)
		}
		rows = append(rows, []string{"", meta.Name, meta.DType, fmt.Sprint(meta.Shape), grad})
	}
	tableRender("Tensors", rows, "", "NAME", "DTYPE", "SHAPE", "REQUIRES_GRAD")

	if ckpt := header.CheckpointMeta; header.IsCheckpoint() {
		tableRender("Checkpoint", [][]string{
			{"", "epoch", strconv.Itoa(ckpt.Epoch)},
			{"", "step", strconv.FormatInt(ckpt.Step, 10)},
			{"", "loss", strconv.FormatFloat(ckpt.Loss, 'g', -1, 64)},
			{"", "optimizer", ckpt.OptimizerType},
		})
	}

	if len(header.Metadata) > 0 {
		keys := make([]string, 0, len(header.Metadata))
		for k := range header.Metadata {
			keys = append(keys, k)
		}
		slices.Sort(keys)

		rows := make([][]string, 0, len(keys))
		for _, k := range keys {
			rows = append(rows, []string{"", k, header.Metadata[k]})
		}
		tableRender("Metadata", rows)
	}
	return nil
}

// ParamHandler decodes a pickled parameter and prints its tensor, flag and tags.
func ParamHandler(cmd *cobra.Command, args []string) error {
	legacy, err := cmd.Flags().GetBool("legacy")
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	p, err := nn.DecodeParameter(f, cpu.New(), nn.DecodeOptions{Legacy: legacy})
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, p.String())
	fmt.Fprintln(w)
	fmt.Fprintf(w, "requires_grad: %t\n", p.RequiresGrad())
	fmt.Fprintf(w, "recipe arity:  %d\n", p.Reduce().Arity())

	tags := p.Tags()
	if len(tags) == 0 {
		return nil
	}
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	fmt.Fprintln(w, "tags:")
	for _, k := range keys {
		fmt.Fprintf(w, "  %s = %v\n", k, tags[k])
	}
	return nil
}

// ExportParamHandler reads one float32 tensor from a .born file and writes
// it as a pickled parameter.
func ExportParamHandler(cmd *cobra.Command, args []string) error {
	path, name := args[0], args[1]

	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	if output == "" {
		output = name + ".pkl"
	}
	tagArgs, err := cmd.Flags().GetStringArray("tag")
	if err != nil {
		return err
	}
	tags, err := parseTags(tagArgs)
	if err != nil {
		return err
	}

	reader, err := serialization.NewBornReader(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = reader.Close()
	}()

	meta, err := reader.TensorInfo(name)
	if err != nil {
		return err
	}
	backend := cpu.New()
	raw, err := reader.LoadTensor(name, backend)
	if err != nil {
		return err
	}
	if raw.DType() != tensor.Float32 {
		return fmt.Errorf("tensor %q is %v, only float32 tensors can be exported", name, raw.DType())
	}

	// Buffers carry no flag and are exported as non-trainable.
	requiresGrad := meta.RequiresGrad != nil && *meta.RequiresGrad
	p := nn.NewParameter(tensor.New[float32](raw, backend),
		nn.WithName(name),
		nn.WithRequiresGrad(requiresGrad),
		nn.WithTags(tags),
	)

	f, err := os.Create(output)
	if err != nil {
		return err
	}
	if err := nn.EncodeParameter(f, p); err != nil {
		return errors.Join(err, f.Close())
	}
	if err := f.Close(); err != nil {
		return err
	}

	slog.Info("exported parameter", "name", name, "output", output, "tags", len(tags))
	return nil
}

// parseTags turns key=value pairs into tags. Integers, floats and bools
// keep their type; anything else stays a string.
func parseTags(pairs []string) (nn.Tags, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	tags := make(nn.Tags, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid tag %q, expected key=value", pair)
		}
		if i, err := strconv.Atoi(value); err == nil {
			tags[key] = i
		} else if f, err := strconv.ParseFloat(value, 64); err == nil {
			tags[key] = f
		} else if b, err := strconv.ParseBool(value); err == nil {
			tags[key] = b
		} else {
			tags[key] = value
		}
	}
	return tags, nil
}
