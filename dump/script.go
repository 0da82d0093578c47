package dump

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
)

// WriteScript writes signals as MATLAB/Octave column vector assignments.
func WriteScript(w io.Writer, sigs []Signal) error {
	bw := bufio.NewWriter(w)
	for _, s := range sigs {
		fmt.Fprintf(bw, "%s = [\n", s.Name)
		var line []byte
		for _, v := range s.Data {
			line = strconv.AppendFloat(line[:0], real(v), 'g', -1, 64)
			if !s.Real {
				if imag(v) >= 0 {
					line = append(line, '+')
				}
				line = strconv.AppendFloat(line, imag(v), 'g', -1, 64)
				line = append(line, 'i')
			}
			line = append(line, ";\n"...)
			bw.Write(line)
		}
		fmt.Fprintf(bw, "];\n")
		if s.Rate > 0 {
			fmt.Fprintf(bw, "%s_fs = %s;\n", s.Name, strconv.FormatFloat(s.Rate, 'g', -1, 64))
		}
	}
	return bw.Flush()
}
