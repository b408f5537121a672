package ui

// iconBytes is a 16x16 PNG: a white play triangle on a dark square.
var iconBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x10, 0x00, 0x00, 0x00, 0x10,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0xf3, 0xff, 0x61, 0x00, 0x00, 0x00,
	0x3e, 0x49, 0x44, 0x41, 0x54, 0x78, 0xda, 0x63, 0x60, 0x00, 0x02, 0x0d,
	0x1d, 0x93, 0xff, 0xe4, 0x60, 0x06, 0x4a, 0x34, 0xc3, 0x0d, 0xa1, 0xba,
	0x01, 0xaf, 0x5f, 0xbf, 0xa6, 0xdc, 0x00, 0x18, 0xa6, 0xd8, 0x00, 0x62,
	0x0c, 0x21, 0x68, 0x00, 0x21, 0x83, 0x88, 0x36, 0x00, 0x97, 0x41, 0xf4,
	0x33, 0x60, 0x60, 0x02, 0x71, 0x60, 0x12, 0x12, 0xfd, 0xf3, 0x02, 0xa5,
	0xd9, 0x19, 0x00, 0x61, 0x23, 0xe2, 0xc0, 0xc5, 0x30, 0xf4, 0x19, 0x00,
	0x00, 0x00, 0x00, 0x49, 0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}
