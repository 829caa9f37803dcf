package domain

// OrderBook representa el libro de órdenes de un token.
type OrderBook struct {
	TokenID string
	Bids    []BookEntry // ordenados mayor a menor precio
	Asks    []BookEntry // ordenados menor a mayor precio
}

// BookEntry es un nivel de precio en el orderbook.
type BookEntry struct {
	Price float64
	Size  float64
}

// BestBid devuelve el mejor nivel de compra (mayor bid); ok=false si no hay bids.
func (ob OrderBook) BestBid() (BookEntry, bool) {
	if len(ob.Bids) == 0 {
		return BookEntry{}, false
	}
	return ob.Bids[0], true
}

// BestAsk devuelve el mejor nivel de venta (menor ask); ok=false si no hay asks.
func (ob OrderBook) BestAsk() (BookEntry, bool) {
	if len(ob.Asks) == 0 {
		return BookEntry{}, false
	}
	return ob.Asks[0], true
}

// Update convierte el top del book en un PriceUpdate. Un lado sin niveles queda
// sin valor para que el merge conserve lo que ya tiene el cache.
func (ob OrderBook) Update() PriceUpdate {
	var u PriceUpdate
	if ask, ok := ob.BestAsk(); ok {
		u.BestAsk = Float(ask.Price)
		u.BestAskSize = Float(ask.Size)
	}
	if bid, ok := ob.BestBid(); ok {
		u.BestBid = Float(bid.Price)
		u.BestBidSize = Float(bid.Size)
	}
	return u
}
