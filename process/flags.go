package process

import (
	"strings"

	cli "github.com/urfave/cli/v3"

	"resemble/common"
)

// Flags are process command flags, values override configuration.
var Flags = []cli.Flag{
	&cli.StringFlag{Name: "fidelity", Aliases: []string{"f"},
		Usage: "default sampling `FIDELITY`: percentage of image width (25%) or pixels (10, 10px)"},
	&cli.StringFlag{Name: "generator", Aliases: []string{"g"},
		Usage: "gradient `STYLE` (supported styles: " + strings.Join(common.GeneratorNames(), ", ") + ")"},
	&cli.StringFlag{Name: "algorithm", Aliases: []string{"a"},
		Usage: "sampling `ALGORITHM` (supported algorithms: " + strings.Join(common.AlgorithmNames(), ", ") + ")"},
	&cli.StringSliceFlag{Name: "selector", Aliases: []string{"s"},
		Usage: "add gradients to plain url() backgrounds in rules with this `SELECTOR` (may be repeated)"},
	&cli.StringSliceFlag{Name: "ext",
		Usage: "process files with this `EXTENSION` when walking directories (may be repeated)"},
	&cli.IntFlag{Name: "workers", Aliases: []string{"w"},
		Usage: "number of declarations processed concurrently, 0 for number of CPUs"},
	&cli.BoolFlag{Name: "overwrite", Aliases: []string{"ow"}, Usage: "continue even if destination exists, overwrite files"},
	&cli.StringFlag{Name: "charset",
		Usage: "read stylesheets without @charset rule or BOM in `ENCODING` (see IANA.org for character set names)"},
}
