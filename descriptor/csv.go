package descriptor

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/sarchlab/milbus/analysis"
)

func writeCSV(
	w io.Writer,
	results []analysis.MessageResult,
	opts WriteOptions,
) error {
	header := []string{"Name", "Frequency", "PayloadWords", "Sender",
		"Receiver", "TransmissionDelay"}
	if !opts.OmitPriority {
		header = append(header, "Priority")
	}
	header = append(header, "WCRT", "AccessDelay", "Converged", "Verdict")

	cw := csv.NewWriter(w)

	err := cw.Write(header)
	if err != nil {
		return err
	}

	for _, r := range results {
		record := []string{
			r.Name,
			formatFloat(r.Frequency),
			strconv.Itoa(r.PayloadWords),
			r.Sender,
			r.Receiver,
			formatFloat(r.TransmissionDelay),
		}

		if !opts.OmitPriority {
			record = append(record, strconv.Itoa(r.Priority))
		}

		record = append(record,
			formatFloat(r.WCRT),
			formatFloat(r.AccessDelay),
			strconv.FormatBool(r.Converged),
			r.Verdict.String(),
		)

		err = cw.Write(record)
		if err != nil {
			return err
		}
	}

	cw.Flush()

	return cw.Error()
}
