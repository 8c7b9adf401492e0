package booking

import "strings"

// Summary is the event title shown on the shared calendar.
func Summary(status, customer, product string) string {
	return "[" + status + "] " + customer + ": " + product
}

// Description is the event body staff read on the shared calendar.
func Description(r Request) string {
	addOns := make([]string, 0, len(r.AddOns))
	for _, a := range r.AddOns {
		addOns = append(addOns, a.Title+": "+a.Option)
	}
	var b strings.Builder
	b.WriteString("Customer Name: " + r.CustomerName)
	b.WriteString("\nProduct: " + r.ProductName)
	b.WriteString("\nAdd-ons:\n" + strings.Join(addOns, "\n"))
	b.WriteString("\nPrice: $" + r.TotalPrice.String())
	b.WriteString("\nBooked from website")
	return b.String()
}
