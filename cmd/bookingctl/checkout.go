package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"localserve/models"
)

// terminalWidget is the payment form of a terminal: it prints the order and
// reads back the payment id and signature the hosted checkout reported. An
// empty line dismisses it.
type terminalWidget struct {
	in  *bufio.Reader
	out io.Writer
}

func newTerminalWidget(in io.Reader, out io.Writer) *terminalWidget {
	return &terminalWidget{in: bufio.NewReader(in), out: out}
}

func (t *terminalWidget) Open(opts models.CheckoutOptions, onSuccess func(models.PaymentResult), onDismiss func()) error {
	fmt.Fprintf(t.out, "%s\n  %s\n  order %s: %s %s\n",
		opts.Name, opts.Description, opts.OrderID, formatMinor(opts.Amount), opts.Currency)
	fmt.Fprint(t.out, "Complete the payment, then enter \"<payment id> <signature>\" (empty to cancel): ")

	line, err := t.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return err
	}
	fields := strings.Fields(line)
	if len(fields) != 2 {
		onDismiss()
		return nil
	}
	onSuccess(models.PaymentResult{PaymentID: fields[0], OrderID: opts.OrderID, Signature: fields[1]})
	return nil
}

func formatMinor(amount int64) string {
	return strconv.FormatInt(amount/100, 10) + "." + fmt.Sprintf("%02d", amount%100)
}
