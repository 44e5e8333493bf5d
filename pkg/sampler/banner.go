package sampler

import "io"

const banner = "\n" +
	"+----------------------------------------------------------------------+\n" +
	"|                 ADC single cycle scan mode                           |\n" +
	"+----------------------------------------------------------------------+\n"

// Banner writes the sample program header.
func Banner(w io.Writer) error {
	_, err := io.WriteString(w, banner)
	return err
}
