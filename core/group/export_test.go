package group

// NowFunc lets external tests freeze the clock of the service.
var NowFunc = &nowFunc
