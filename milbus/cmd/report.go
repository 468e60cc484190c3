package cmd

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/sarchlab/milbus/analysis"
)

const separator = "--------------------------------------------"

func printReport(w io.Writer, r *analysis.RunReport) {
	fmt.Fprintln(w, separator)
	fmt.Fprintf(w, "Run %s: %d messages, bus controller %s, link speed %g Mbit/s\n",
		r.RunID, len(r.Messages), r.BusController, r.LinkSpeed)
	fmt.Fprintln(w, separator)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "NAME\tFREQ (Hz)\tWORDS\tSENDER\tRECEIVER\t"+
		"C (us)\tPRIO\tWCRT (us)\tACCESS (us)\tTEST\t")

	for _, res := range r.Results() {
		wcrt := num(res.WCRT)
		if !res.Converged {
			wcrt = ">" + wcrt
		}

		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\t%d\t%s\t%s\t%s\t\n",
			res.Name,
			num(res.Frequency),
			res.PayloadWords,
			res.Sender,
			res.Receiver,
			num(res.TransmissionDelay),
			res.Priority,
			wcrt,
			num(res.AccessDelay),
			res.Verdict)
	}

	tw.Flush()

	fmt.Fprintln(w, separator)
	fmt.Fprintf(w, "%d of %d messages are schedulable.\n",
		numSchedulable(r), len(r.Messages))

	if n := len(r.NonConvergent()); n > 0 {
		fmt.Fprintf(w, "%d response times did not converge.\n", n)
	}

	u := r.Utilization
	switch u.Conclusion {
	case analysis.UtilizationInconclusive:
		fmt.Fprintf(w, "Since the value of the utilization test is %.4f > 1, "+
			"we cannot conclude on the schedulability of this set of messages "+
			"using this test.\n", u.Value)
	default:
		fmt.Fprintf(w, "The value of the utilization test is %.4f <= 1 "+
			"(sum of C %s us, shortest period %s us).\n",
			u.Value, num(float64(u.TotalDelay)), num(float64(u.ShortestPeriod)))
	}

	fmt.Fprintln(w, separator)
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
